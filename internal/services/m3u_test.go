package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/goviaplay/internal/models"
	"github.com/amaumene/goviaplay/pkg/logger"
)

func TestExportWritesPlaylist(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(channelsJSON("Now")))
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.M3UPath = t.TempDir()
	cfg.M3UFilename = "channels.m3u"

	gw, _ := newTestGateway(t)
	log := logger.NewWithLevel("error")
	cat := NewCatalog(gw, NewClassifier(), cfg, nil, log)
	cat.classifier.now = func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	}
	m := NewM3U(cat, cfg, log)

	path, err := m.Export(context.Background(), ts.URL)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "#EXTM3U\n")
	assert.Contains(t, content, `tvg-id="100001"`)
	assert.Contains(t, content, `tvg-name="Sports One"`)
	assert.Contains(t, content, `tvg-logo="https://i/ch1.png"`)
	assert.Contains(t, content, "http://127.0.0.1:5000/play?ident=100001&tve=1")
	assert.Contains(t, content, `tvg-id="100002"`)
}

func channelWithImage(url string) *models.Product {
	return &models.Product{
		Type: "tvChannel",
		Content: models.Content{
			Images: models.ImageSet{Landscape: &models.Image{TemplateURL: url}},
		},
	}
}

func TestChannelNameFromFallbackImage(t *testing.T) {
	ch := channelWithImage("https://i/replace-SportsExtraOne_fallback.png{?width}")
	assert.Equal(t, "Sports Extra One", channelName(ch))

	titled := channelWithImage("https://i/whatever.png")
	titled.Content.Title = "Named"
	assert.Equal(t, "Named", channelName(titled))
}
