package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/models"
)

// Classifier turns catalog products into host menu entries. It is
// stateless apart from the injected clock.
type Classifier struct {
	now func() time.Time
}

// NewClassifier builds a classifier on the real clock.
func NewClassifier() *Classifier {
	return &Classifier{now: time.Now}
}

// EventStatus classifies a broadcast-bound product against the current
// time. The isLive flag wins over any window; otherwise the first
// available window decides (epg start/end, then epg startTime/endTime,
// then system availability). Products without any window and without
// the flag have no broadcast.
func (c *Classifier) EventStatus(p *models.Product) models.EventStatus {
	if p.HasFlag(constants.FlagIsLive) {
		return models.StatusLive
	}
	start, end := eventWindow(p)
	if start == nil {
		return models.StatusNoBroadcast
	}
	now := c.now()
	switch {
	case start.After(now):
		return models.StatusUpcoming
	case end == nil || now.Before(*end):
		return models.StatusLive
	default:
		return models.StatusArchive
	}
}

func eventWindow(p *models.Product) (start, end *time.Time) {
	if p.EPG.Start != nil {
		return p.EPG.Start, p.EPG.End
	}
	if p.EPG.StartTime != nil {
		return p.EPG.StartTime, p.EPG.EndTime
	}
	if p.System.Availability.Start != nil {
		return p.System.Availability.Start, p.System.Availability.End
	}
	if p.System.Availability.SVOD != nil && p.System.Availability.SVOD.Start != nil {
		return p.System.Availability.SVOD.Start, p.System.Availability.SVOD.End
	}
	return nil, nil
}

// ColorLabel wraps a label in the host's color markup for a status.
func ColorLabel(status models.EventStatus, label string) string {
	var color string
	switch status {
	case models.StatusLive:
		color = constants.ColorLive
	case models.StatusUpcoming:
		color = constants.ColorUpcoming
	case models.StatusArchive:
		color = constants.ColorArchive
	default:
		color = constants.ColorNoBroadcast
	}
	return fmt.Sprintf("[COLOR=%s]%s[/COLOR]", color, label)
}

// Classify builds the menu entry for one product. The second return
// value is false when the product should be dropped from the listing
// (expired catch-up windows). An unrecognized type returns
// *ClassificationError so schema drift aborts the listing visibly.
func (c *Classifier) Classify(p *models.Product) (models.MenuItem, bool, error) {
	switch p.Type {
	case "movie":
		return c.movieItem(p), true, nil
	case "series":
		return c.seriesItem(p), true, nil
	case "episode":
		return c.episodeItem(p), true, nil
	case "sport":
		return c.sportItem(p), true, nil
	case "sportSeries":
		return c.sportSeriesItem(p), true, nil
	case "tvEvent":
		return c.tvEventItem(p)
	case "clip":
		return c.clipItem(p), true, nil
	default:
		return models.MenuItem{}, false, &ClassificationError{ProductType: p.Type}
	}
}

func (c *Classifier) baseInfo(p *models.Product) *models.ItemInfo {
	info := &models.ItemInfo{
		Plot:       p.Content.Synopsis,
		Genre:      joinGenres(p.Content.Genres),
		MPAA:       p.Content.ParentalRating,
		Year:       int(p.Content.Production.Year),
		Cast:       p.Content.People.Actors,
		IMDBNumber: p.Content.IMDB.ID,
		Rating:     float64(p.Content.IMDB.Rating),
		Votes:      int(p.Content.IMDB.Votes),
	}
	if info.Cast == nil {
		info.Cast = []string{}
	}
	// A missing director and an empty cast render differently on the
	// host, so the distinction is kept.
	if len(p.Content.People.Directors) > 0 {
		d := strings.Join(p.Content.People.Directors, ", ")
		info.Director = &d
	}
	if p.Content.Duration.Milliseconds > 0 {
		info.Duration = p.Content.Duration.Seconds()
	}
	return info
}

func joinGenres(genres []models.Link) string {
	titles := make([]string, 0, len(genres))
	for _, g := range genres {
		if g.Title != "" {
			titles = append(titles, g.Title)
		}
	}
	return strings.Join(titles, ", ")
}

// isRental reports whether the product is a pay-per-view title.
func isRental(p *models.Product) bool {
	pi := p.System.Availability.PlanInfo
	return pi != nil && pi.IsRental
}

func (c *Classifier) movieItem(p *models.Product) models.MenuItem {
	title := p.Content.Title
	if isRental(p) {
		title += " *"
	}
	info := c.baseInfo(p)
	info.MediaType = "movie"
	return models.MenuItem{
		Title:       title,
		Ident:       p.GUID(),
		ContentType: "movie",
		Playable:    true,
		Info:        info,
		Art:         c.artwork(p),
	}
}

func (c *Classifier) seriesItem(p *models.Product) models.MenuItem {
	title := p.Content.Series.Title
	if title == "" {
		title = p.Content.Title
	}
	info := c.baseInfo(p)
	info.MediaType = "tvshow"
	info.TVShow = title
	if info.Plot == "" {
		info.Plot = p.Content.Series.Synopsis
	}
	return models.MenuItem{
		Title:       title,
		Target:      StripTemplates(p.Links.Href("viaplay:page")),
		ContentType: "tvshows",
		Folder:      true,
		Info:        info,
		Art:         c.artwork(p),
	}
}

func (c *Classifier) episodeItem(p *models.Product) models.MenuItem {
	title := p.Content.Series.EpisodeTitle
	if title == "" {
		title = p.Content.Title
	}
	info := c.baseInfo(p)
	info.MediaType = "episode"
	info.TVShow = p.Content.Series.Title
	info.Season = int(p.Content.Series.Season.SeasonNumber)
	info.Episode = int(p.Content.Series.EpisodeNumber)
	// Episodes frequently ship without their own synopsis.
	if info.Plot == "" {
		info.Plot = p.Content.Series.Synopsis
	}
	return models.MenuItem{
		Title:       title,
		Ident:       p.GUID(),
		ContentType: "episode",
		Playable:    true,
		Info:        info,
		Art:         c.artwork(p),
	}
}

func (c *Classifier) sportItem(p *models.Product) models.MenuItem {
	status := c.EventStatus(p)
	start, _ := eventWindow(p)

	item := models.MenuItem{
		Title:       ColorLabel(status, statusPrefix(status, start)) + " " + p.Content.Title,
		Ident:       p.GUID(),
		ContentType: "video",
		Status:      status,
		Info:        c.baseInfo(p),
		Art:         c.artwork(p),
	}
	item.Info.MediaType = "video"
	if start != nil {
		item.StartTime = start.Format(time.RFC3339)
	}
	switch status {
	case models.StatusUpcoming:
		item.Dialog = &models.Dialog{
			Heading: "Upcoming event",
			Message: upcomingMessage(p.Content.Title, start),
		}
	default:
		item.Playable = true
	}
	return item
}

func (c *Classifier) sportSeriesItem(p *models.Product) models.MenuItem {
	info := c.baseInfo(p)
	info.MediaType = "video"
	return models.MenuItem{
		Title:       p.Content.Title,
		Target:      StripTemplates(p.Links.Href("viaplay:page")),
		ContentType: "video",
		Folder:      true,
		Info:        info,
		Art:         c.artwork(p),
	}
}

func (c *Classifier) tvEventItem(p *models.Product) (models.MenuItem, bool, error) {
	status := c.EventStatus(p)
	start, _ := eventWindow(p)

	if status == models.StatusArchive {
		// Archived TV events are only playable inside their catch-up
		// window.
		ca := p.System.CatchupAvailability
		if ca.End == nil || c.now().After(*ca.End) {
			return models.MenuItem{}, false, nil
		}
	}

	item := models.MenuItem{
		Title:       ColorLabel(status, statusPrefix(status, start)) + " " + p.Content.Title,
		Ident:       p.GUID(),
		ContentType: "video",
		Status:      status,
		Info:        c.baseInfo(p),
		Art:         c.artwork(p),
	}
	item.Info.MediaType = "video"
	if start != nil {
		item.StartTime = start.Format(time.RFC3339)
	}
	switch status {
	case models.StatusUpcoming:
		item.Dialog = &models.Dialog{
			Heading: "Upcoming event",
			Message: upcomingMessage(p.Content.Title, start),
		}
	default:
		item.Playable = true
	}
	return item, true, nil
}

func (c *Classifier) clipItem(p *models.Product) models.MenuItem {
	info := c.baseInfo(p)
	info.MediaType = "video"
	return models.MenuItem{
		Title:       p.Content.Title,
		Ident:       p.GUID(),
		ContentType: "video",
		Playable:    true,
		Info:        info,
		Art:         c.artwork(p),
	}
}

func statusPrefix(status models.EventStatus, start *time.Time) string {
	switch status {
	case models.StatusLive:
		return "Live"
	case models.StatusUpcoming:
		if start != nil {
			return start.Local().Format("02.01 15:04")
		}
		return "Upcoming"
	case models.StatusArchive:
		return "Archive"
	default:
		return "No broadcast"
	}
}

func upcomingMessage(title string, start *time.Time) string {
	if start == nil {
		return fmt.Sprintf("%s has not started yet.", title)
	}
	return fmt.Sprintf("%s starts %s.", title, start.Local().Format("2006-01-02 15:04"))
}

// artwork maps image roles to host art slots. Missing roles leave
// slots empty; a slot is filled by at most one role per variant.
func (c *Classifier) artwork(p *models.Product) *models.Artwork {
	art := &models.Artwork{}
	img := p.Content.Images

	if p.Type == "tvEvent" || p.Type == "clip" {
		if u := img.Landscape.Href(); u != "" {
			art.Thumb = u
			art.Fanart = u
		}
		return art
	}

	if u := img.Landscape.Href(); u != "" {
		art.Banner = u
		if p.Type == "episode" || p.Type == "sport" {
			art.Thumb = u
		}
	}
	if u := img.Hero169.Href(); u != "" {
		art.Fanart = u
	}
	if u := img.Coverart23.Href(); u != "" && p.Type != "sport" {
		art.Poster = u
	}
	if u := img.Coverart169.Href(); u != "" {
		art.Cover = u
	}
	if u := img.Boxart.Href(); u != "" && p.Type != "episode" && p.Type != "sport" {
		art.Thumb = u
	}
	return art
}
