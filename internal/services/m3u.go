package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/internal/models"
	"github.com/amaumene/goviaplay/pkg/logger"
)

// fallbackImageTitle recovers a channel name from its placeholder
// image filename when the schedule omits the title.
var fallbackImageTitle = regexp.MustCompile(`replace-(.*?)_.*\.png`)

// camelBoundary splits camel-cased channel names into words.
var camelBoundary = regexp.MustCompile(`(\w)([A-Z])`)

// M3U exports the channel lineup as an IPTV playlist pointing back at
// the local play endpoint.
type M3U struct {
	catalog *Catalog
	cfg     *config.Config
	logger  logger.Logger
}

// NewM3U builds the exporter.
func NewM3U(cat *Catalog, cfg *config.Config, log logger.Logger) *M3U {
	return &M3U{catalog: cat, cfg: cfg, logger: log}
}

// Export walks every channel page and writes the playlist. It returns
// the path written.
func (m *M3U) Export(ctx context.Context, channelsURL string) (string, error) {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")

	count := 0
	pageURL := channelsURL
	for pageURL != "" {
		entries, next, err := m.catalog.ChannelEntries(ctx, pageURL)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			guid := e.Channel.GUID()
			if guid == "" {
				continue
			}
			name := channelName(&e.Channel)
			logo := e.Channel.Content.Images.Landscape.Href()
			fmt.Fprintf(&b, "#EXTINF:-1 tvg-id=\"%s\" tvg-name=\"%s\" tvg-logo=\"%s\",%s\n", guid, name, logo, name)
			fmt.Fprintf(&b, "http://127.0.0.1:%s/play?ident=%s&tve=1\n", m.cfg.Port, guid)
			count++
		}
		pageURL = next
	}

	dir := m.cfg.M3UPath
	if dir == "" {
		dir = m.cfg.DataDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("m3u: creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, m.cfg.M3UFilename)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("m3u: writing %s: %w", path, err)
	}
	m.logger.Infof("[M3U] exported %d channels to %s", count, path)
	return path, nil
}

// channelName returns the channel's display name, recovering it from
// the placeholder image when the title field is empty.
func channelName(ch *models.Product) string {
	if ch.Content.Title != "" {
		return ch.Content.Title
	}
	if m := fallbackImageTitle.FindStringSubmatch(ch.Content.Images.Landscape.Href()); m != nil {
		return camelBoundary.ReplaceAllString(m[1], "$1 $2")
	}
	return ch.GUID()
}
