package models

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// FlexInt accepts both JSON numbers and numeric strings. Several
// product fields (production year, vote counts) flip between the two
// across regions.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		// Tolerate decorated values like "2024 " or "7,342".
		cleaned := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, string(data))
		if cleaned == "" {
			*f = 0
			return nil
		}
		n, err = strconv.Atoi(cleaned)
		if err != nil {
			return err
		}
	}
	*f = FlexInt(n)
	return nil
}

// FlexFloat accepts both JSON numbers and numeric strings.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

// Product is a single catalog entry: movie, series, episode, sport
// event, TV event, clip or channel.
type Product struct {
	Type      string   `json:"type"`
	Group     string   `json:"group"`
	PublicURL string   `json:"publicPath"`
	System    System   `json:"system"`
	EPG       EPG      `json:"epg"`
	Content   Content  `json:"content"`
	User      UserData `json:"user"`
	Links     Links    `json:"_links"`
	Embedded  Embedded `json:"_embedded"`
}

// GUID returns the product's stable identifier.
func (p *Product) GUID() string {
	return p.System.GUID
}

// HasFlag reports whether a system flag is set on the product.
func (p *Product) HasFlag(flag string) bool {
	for _, f := range p.System.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// System carries backend identity and availability for a product.
type System struct {
	GUID                string       `json:"guid"`
	ProgramGUID         string       `json:"programGuid"`
	Flags               []string     `json:"flags"`
	Availability        Availability `json:"availability"`
	CatchupAvailability Availability `json:"catchupAvailability"`
}

// Availability is a start/end window.
type Availability struct {
	Start    *time.Time   `json:"start"`
	End      *time.Time   `json:"end"`
	PlanInfo *PlanInfo    `json:"planInfo"`
	SVOD     *WindowBlock `json:"svod"`
}

// WindowBlock wraps the nested {"start": ..., "end": ...} form some
// availability sections use.
type WindowBlock struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// PlanInfo flags purchase models on an availability window.
type PlanInfo struct {
	IsRental bool `json:"isRental"`
}

// EPG is broadcast schedule data for live and event products. The API
// emits either start/end or startTime/endTime depending on endpoint.
type EPG struct {
	Start        *time.Time `json:"start"`
	End          *time.Time `json:"end"`
	StartTime    *time.Time `json:"startTime"`
	EndTime      *time.Time `json:"endTime"`
	ChannelGuids []string   `json:"channelGuids"`
}

// Content carries all descriptive metadata for a product.
type Content struct {
	Title          string     `json:"title"`
	OriginalTitle  string     `json:"originalTitle"`
	Synopsis       string     `json:"synopsis"`
	ParentalRating string     `json:"parentalRating"`
	Format         Format     `json:"format"`
	Duration       Duration   `json:"duration"`
	Production     Production `json:"production"`
	People         People     `json:"people"`
	IMDB           IMDB       `json:"imdb"`
	Images         ImageSet   `json:"images"`
	Series         Series     `json:"series"`
	Genres         []Link     `json:"viaplay:genres"`
}

// Format names the content format ("movie", "series", ...) for
// products whose type alone is ambiguous.
type Format struct {
	Title string `json:"title"`
}

// Duration is the runtime block; the wire value is milliseconds.
type Duration struct {
	Milliseconds int64  `json:"milliseconds"`
	Readable     string `json:"readable"`
}

// Seconds returns the runtime in whole seconds.
func (d Duration) Seconds() int64 {
	return d.Milliseconds / 1000
}

// Production holds origin metadata.
type Production struct {
	Year FlexInt `json:"year"`
}

// People lists credited cast and crew.
type People struct {
	Actors    []string `json:"actors"`
	Directors []string `json:"directors"`
}

// IMDB carries external rating data.
type IMDB struct {
	ID     string    `json:"id"`
	Rating FlexFloat `json:"rating"`
	Votes  FlexInt   `json:"votes"`
}

// ImageSet maps artwork roles to images. Unknown roles are ignored.
type ImageSet struct {
	Landscape   *Image `json:"landscape"`
	Hero169     *Image `json:"hero169"`
	Coverart23  *Image `json:"coverart23"`
	Coverart169 *Image `json:"coverart169"`
	Boxart      *Image `json:"boxart"`
}

// Image is a single artwork reference whose URL may carry a size
// template suffix.
type Image struct {
	TemplateURL string `json:"url"`
}

// Href returns the image URL with any template suffix removed.
func (i *Image) Href() string {
	if i == nil {
		return ""
	}
	if idx := strings.Index(i.TemplateURL, "{"); idx >= 0 {
		return i.TemplateURL[:idx]
	}
	return i.TemplateURL
}

// Series holds parent-series metadata present on series and episode
// products.
type Series struct {
	Title            string      `json:"title"`
	Synopsis         string      `json:"synopsis"`
	EpisodeNumber    FlexInt     `json:"episodeNumber"`
	EpisodeTitle     string      `json:"episodeTitle"`
	Season           SeasonBlock `json:"season"`
	AvailableSeasons FlexInt     `json:"availableSeasons"`
}

// SeasonBlock identifies the season an episode belongs to.
type SeasonBlock struct {
	SeasonNumber FlexInt `json:"seasonNumber"`
}

// UserData carries per-account state attached to a product.
type UserData struct {
	Starred  bool      `json:"starred"`
	Progress *Progress `json:"progress"`
}

// Progress is server-side resume state.
type Progress struct {
	ElapsedPercent int  `json:"elapsedPercent"`
	Watched        bool `json:"watched"`
}
