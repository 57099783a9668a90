package services

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/amaumene/goviaplay/pkg/logger"
)

// subtitleLang extracts the language tag from a subtitle URL, which
// carries it as an underscore suffix before the extension.
var subtitleLang = regexp.MustCompile(`_([a-z]+)`)

// Subtitles downloads SAMI subtitle files for the host player, which
// cannot fetch them from the CDN itself.
type Subtitles struct {
	gateway *Gateway
	dir     string
	logger  logger.Logger
}

// NewSubtitles builds the downloader writing into dir.
func NewSubtitles(gw *Gateway, dir string, log logger.Logger) *Subtitles {
	return &Subtitles{gateway: gw, dir: dir, logger: log}
}

// Download fetches each subtitle URL and writes it as <lang>.sami,
// returning the paths written. Individual failures are logged and
// skipped so one bad track does not lose the rest.
func (s *Subtitles) Download(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("subtitles: creating %s: %w", s.dir, err)
	}

	var paths []string
	for _, u := range urls {
		body, err := s.gateway.Get(ctx, u)
		if err != nil {
			s.logger.Warnf("[Subtitles] fetching %s: %v", u, err)
			continue
		}
		lang := "unknown"
		if m := subtitleLang.FindStringSubmatch(u); m != nil {
			lang = m[1]
		}
		path := filepath.Join(s.dir, lang+".sami")
		if err := os.WriteFile(path, []byte(CleanSAMI(string(body))), 0644); err != nil {
			s.logger.Warnf("[Subtitles] writing %s: %v", path, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// CleanSAMI normalizes a SAMI document: HTML entities decoded and
// doubled spaces collapsed, which some players choke on.
func CleanSAMI(doc string) string {
	doc = html.UnescapeString(doc)
	for strings.Contains(doc, "  ") {
		doc = strings.ReplaceAll(doc, "  ", " ")
	}
	return doc
}
