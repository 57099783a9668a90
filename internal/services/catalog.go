package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/internal/models"
	"github.com/amaumene/goviaplay/pkg/logger"
)

// ProductsOptions adjusts a product listing.
type ProductsOptions struct {
	// SearchQuery turns the request into a search (browser User-Agent,
	// query parameter).
	SearchQuery string
	// FilterStatus keeps only products whose event status is in the
	// set. Empty keeps everything.
	FilterStatus []models.EventStatus
}

// WatchStates supplies host playback state per product GUID. Nil means
// no annotation.
type WatchStates func() map[string]database.WatchState

// Catalog navigates the hypermedia catalog and renders documents into
// host menu listings. No responses are cached; every navigation
// re-fetches so entitlement and live status stay current.
type Catalog struct {
	gateway    *Gateway
	classifier *Classifier
	cfg        *config.Config
	watched    WatchStates
	logger     logger.Logger
	rootURL    string
}

// NewCatalog builds the navigator. watched may be nil.
func NewCatalog(gw *Gateway, cl *Classifier, cfg *config.Config, watched WatchStates, log logger.Logger) *Catalog {
	rootURL := cfg.ContentBaseURL
	if rootURL == "" {
		rootURL = constants.ContentURL(cfg.TLD(), cfg.Country)
	}
	return &Catalog{
		gateway:    gw,
		classifier: cl,
		cfg:        cfg,
		watched:    watched,
		logger:     log,
		rootURL:    rootURL,
	}
}

// RootURL is the catalog entry point for the configured country.
func (c *Catalog) RootURL() string {
	return c.rootURL
}

// RootPage builds the top-level menu from the root document's link
// order. A root without account data means the session is gone, which
// is reported the same way the API itself would.
func (c *Catalog) RootPage(ctx context.Context) (*models.Listing, error) {
	page, err := c.gateway.GetPage(ctx, c.RootURL(), nil, nil)
	if err != nil {
		return nil, err
	}
	if !hasUserData(page) {
		return nil, &APIError{Code: constants.ErrMissingSessionCookie}
	}

	listing := &models.Listing{}
	for _, rel := range page.Links.Rels() {
		for _, link := range page.Links.GetAll(rel) {
			if link.Title == "" || isAllLower(link.Title) {
				// Technical links carry lowercase names, not titles.
				continue
			}
			listing.Items = append(listing.Items, models.MenuItem{
				Title:  link.Title,
				Target: StripTemplates(link.Href),
				Folder: true,
			})
		}
	}
	return listing, nil
}

func hasUserData(page *models.Page) bool {
	trimmed := strings.TrimSpace(string(page.User))
	return trimmed != "" && trimmed != "null" && trimmed != "{}"
}

// isAllLower mirrors the classic "no cased character is uppercase"
// test: true when the string has cased characters and all of them are
// lowercase.
func isAllLower(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			hasCased = true
		}
	}
	return hasCased
}

// Collections lists the content blocks of a section page. Only
// list-style blocks are navigable; feature boxes and untitled blocks
// are presentation furniture.
func (c *Catalog) Collections(ctx context.Context, pageURL string) (*models.Listing, error) {
	page, err := c.gateway.GetPage(ctx, pageURL, nil, nil)
	if err != nil {
		return nil, err
	}
	listing := &models.Listing{}
	for _, block := range page.Embedded.Blocks {
		// Block types vary in casing (list, dynamicList, ...).
		blockType := strings.ToLower(block.Type)
		if !strings.Contains(blockType, "list") || blockType == "list-featurebox" {
			continue
		}
		if block.Title == "" {
			continue
		}
		listing.Items = append(listing.Items, models.MenuItem{
			Title:  block.Title,
			Target: StripTemplates(block.Links.Href("self")),
			Folder: true,
		})
	}
	return listing, nil
}

// Products renders a document into a listing of classified products
// plus the next page link when the document advertises one.
func (c *Catalog) Products(ctx context.Context, docURL string, opts ProductsOptions) (*models.Listing, error) {
	var params url.Values
	var headers map[string]string
	if opts.SearchQuery != "" {
		params = url.Values{"query": {opts.SearchQuery}}
		headers = map[string]string{"User-Agent": constants.SearchUserAgent}
	}

	page, err := c.gateway.GetPage(ctx, docURL, params, headers)
	if err != nil {
		return nil, err
	}

	products, err := extractProducts(page)
	if err != nil {
		return nil, err
	}

	listing := &models.Listing{NextPage: nextPageHref(page)}
	var states map[string]database.WatchState
	if c.watched != nil {
		states = c.watched()
	}

	for i := range products {
		p := &products[i]
		item, keep, err := c.classifier.Classify(p)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", StripTemplates(docURL), err)
		}
		if !keep {
			continue
		}
		if len(opts.FilterStatus) > 0 && !statusIn(item.Status, opts.FilterStatus) {
			continue
		}
		if item.Playable && item.Info != nil {
			if st, ok := states[item.Ident]; ok {
				item.Info.PlayCount = st.PlayCount
				item.Info.LastPlayed = st.LastPlayed
				item.Info.Resume = st.Resume
				item.Info.Total = st.Total
			}
		}
		listing.Items = append(listing.Items, item)
	}
	return listing, nil
}

func statusIn(status models.EventStatus, set []models.EventStatus) bool {
	for _, s := range set {
		if status == s {
			return true
		}
	}
	return false
}

// extractProducts locates the product list for a document shape.
func extractProducts(page *models.Page) ([]models.Product, error) {
	// Sport-by-day pages arrive as type "page" with a sectionType
	// marker; every day block contributes its products.
	if page.SectionType == "sportPerDay" {
		var out []models.Product
		for _, block := range page.Embedded.Blocks {
			out = append(out, block.Embedded.Products...)
		}
		return out, nil
	}
	switch page.Type {
	case "tvChannel":
		var out []models.Product
		for _, p := range page.Embedded.Products {
			if p.HasFlag(constants.FlagNoBroadcast) {
				continue
			}
			out = append(out, p)
		}
		return out, nil
	case "product":
		if page.Embedded.Product != nil {
			return []models.Product{*page.Embedded.Product}, nil
		}
		return nil, nil
	default:
		if len(page.Embedded.Products) > 0 {
			return page.Embedded.Products, nil
		}
		// Section pages embed their products one level down.
		for _, block := range page.Embedded.Blocks {
			if len(block.Embedded.Products) > 0 {
				return block.Embedded.Products, nil
			}
		}
		return nil, nil
	}
}

// nextPageHref finds the next-page link for a document. Presence of
// the link is authoritative; page counters are never consulted. Paged
// documents keep the link one level down, in the first list or grid
// block, and product documents keep it on the embedded product.
func nextPageHref(page *models.Page) string {
	switch page.Type {
	case "page":
		for _, block := range page.Embedded.Blocks {
			blockType := strings.ToLower(block.Type)
			if strings.Contains(blockType, "list") || strings.Contains(blockType, "grid") {
				return StripTemplates(block.Links.Href("next"))
			}
		}
		return ""
	case "product":
		if page.Embedded.Product != nil {
			return StripTemplates(page.Embedded.Product.Links.Href("next"))
		}
		return ""
	default:
		return StripTemplates(page.Links.Href("next"))
	}
}

// Seasons lists the season blocks of a series page in document order.
func (c *Catalog) Seasons(ctx context.Context, seriesURL string) ([]models.MenuItem, error) {
	page, err := c.gateway.GetPage(ctx, seriesURL, nil, nil)
	if err != nil {
		return nil, err
	}
	var seasons []models.MenuItem
	for _, block := range page.Embedded.Blocks {
		if block.Type != "season-list" {
			continue
		}
		title := block.Title
		if title == "" {
			title = fmt.Sprintf("Season %d", len(seasons)+1)
		}
		seasons = append(seasons, models.MenuItem{
			Title:       title,
			Target:      StripTemplates(block.Links.Href("self")),
			ContentType: "seasons",
			Folder:      true,
		})
	}
	return seasons, nil
}

// SeasonListing lists a series page. A single-season series collapses
// straight into that season's episodes.
func (c *Catalog) SeasonListing(ctx context.Context, seriesURL string) (*models.Listing, error) {
	seasons, err := c.Seasons(ctx, seriesURL)
	if err != nil {
		return nil, err
	}
	if len(seasons) == 1 {
		return c.Products(ctx, seasons[0].Target, ProductsOptions{})
	}
	return &models.Listing{Items: seasons}, nil
}

// ChannelEntry is one TV channel with its upcoming program schedule,
// used by both the channel menu and the M3U export.
type ChannelEntry struct {
	Channel  models.Product
	Programs []models.Product
}

// ChannelEntries fetches a channels page and unwraps the doubly nested
// channel blocks.
func (c *Catalog) ChannelEntries(ctx context.Context, channelsURL string) ([]ChannelEntry, string, error) {
	page, err := c.gateway.GetPage(ctx, channelsURL, nil, nil)
	if err != nil {
		return nil, "", err
	}
	var entries []ChannelEntry
	for _, block := range page.Embedded.Blocks {
		ch := block.Embedded.Channel
		if ch == nil {
			continue
		}
		entries = append(entries, ChannelEntry{Channel: *ch, Programs: ch.Embedded.Products})
	}
	return entries, nextPageHref(page), nil
}

// Channels renders the channel menu. Each entry shows the currently
// airing program: the first live program past the leading schedule
// placeholder, or a no-broadcast marker.
func (c *Catalog) Channels(ctx context.Context, channelsURL string) (*models.Listing, error) {
	entries, next, err := c.ChannelEntries(ctx, channelsURL)
	if err != nil {
		return nil, err
	}
	listing := &models.Listing{NextPage: next}
	for _, e := range entries {
		label := ColorLabel(models.StatusNoBroadcast, "No broadcast")
		if airing := currentlyAiring(c.classifier, e.Programs); airing != nil {
			label = ColorLabel(models.StatusLive, airing.Content.Title)
		}
		item := models.MenuItem{
			Title:  fmt.Sprintf("%s %s", e.Channel.Content.Title, label),
			Target: StripTemplates(e.Channel.Links.Href("self")),
			Folder: true,
			Art: &models.Artwork{
				Thumb: e.Channel.Content.Images.Landscape.Href(),
			},
		}
		listing.Items = append(listing.Items, item)
	}
	return listing, nil
}

// currentlyAiring picks the live program from a channel schedule. The
// first slot is yesterday's schedule tail and never current.
func currentlyAiring(cl *Classifier, programs []models.Product) *models.Product {
	for i := 1; i < len(programs); i++ {
		if cl.EventStatus(&programs[i]) == models.StatusLive {
			return &programs[i]
		}
	}
	return nil
}

// Letters builds the A-Z index from the distinct group values of an
// alphabetical listing.
func (c *Catalog) Letters(ctx context.Context, listURL string) ([]models.MenuItem, error) {
	page, err := c.gateway.GetPage(ctx, listURL, nil, nil)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var letters []string
	for _, p := range page.Embedded.Products {
		if p.Group != "" && !seen[p.Group] {
			seen[p.Group] = true
			letters = append(letters, p.Group)
		}
	}
	sort.Strings(letters)

	items := make([]models.MenuItem, 0, len(letters))
	for _, letter := range letters {
		items = append(items, models.MenuItem{
			Title:  letter,
			Target: appendQuery(StripTemplates(listURL), "letter", EncodeLetter(letter)),
			Folder: true,
		})
	}
	return items, nil
}

// EncodeLetter encodes an index group for the letter filter: the
// digit bucket becomes the hash sign, letters go lowercase.
func EncodeLetter(letter string) string {
	if letter == "0-9" {
		return "%23"
	}
	return strings.ToLower(letter)
}

func appendQuery(rawURL, key, value string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + key + "=" + value
}

// Categories lists a document's category filters.
func (c *Catalog) Categories(ctx context.Context, docURL string) ([]models.MenuItem, error) {
	return c.linkItems(ctx, docURL, "viaplay:categoryFilters")
}

// Sortings lists a document's sort orders.
func (c *Catalog) Sortings(ctx context.Context, docURL string) ([]models.MenuItem, error) {
	return c.linkItems(ctx, docURL, "viaplay:sortings")
}

func (c *Catalog) linkItems(ctx context.Context, docURL, rel string) ([]models.MenuItem, error) {
	page, err := c.gateway.GetPage(ctx, docURL, nil, nil)
	if err != nil {
		return nil, err
	}
	var items []models.MenuItem
	for _, link := range page.Links.GetAll(rel) {
		title := link.Title
		if title == "" {
			title = link.Name
		}
		if title == "" {
			continue
		}
		items = append(items, models.MenuItem{
			Title:  title,
			Target: StripTemplates(link.Href),
			Folder: true,
		})
	}
	return items, nil
}

// SearchURL returns the search endpoint advertised by the root page.
func (c *Catalog) SearchURL(ctx context.Context) (string, error) {
	page, err := c.gateway.GetPage(ctx, c.RootURL(), nil, nil)
	if err != nil {
		return "", err
	}
	href := page.Links.Href("viaplay:search")
	if href == "" {
		return "", fmt.Errorf("root page advertises no search link")
	}
	return StripTemplates(href), nil
}

// Search runs a catalog search.
func (c *Catalog) Search(ctx context.Context, query string) (*models.Listing, error) {
	searchURL, err := c.SearchURL(ctx)
	if err != nil {
		return nil, err
	}
	return c.Products(ctx, searchURL, ProductsOptions{SearchQuery: query})
}
