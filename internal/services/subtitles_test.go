package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/goviaplay/pkg/logger"
)

func TestCleanSAMI(t *testing.T) {
	in := "<SAMI><P>It&#39;s  a   test &amp; more</P></SAMI>"
	assert.Equal(t, "<SAMI><P>It's a test & more</P></SAMI>", CleanSAMI(in))
}

func TestDownloadWritesLanguageFiles(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<SAMI>text for " + r.URL.Path + "</SAMI>"))
	}))
	defer ts.Close()

	gw, _ := newTestGateway(t)
	dir := t.TempDir()
	s := NewSubtitles(gw, dir, logger.NewWithLevel("error"))

	paths, err := s.Download(context.Background(), []string{
		ts.URL + "/subs_sv.sami",
		ts.URL + "/subs_en.sami",
	})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Equal(t, filepath.Join(dir, "sv.sami"), paths[0])
	assert.Equal(t, filepath.Join(dir, "en.sami"), paths[1])

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "subs_sv")
}

func TestDownloadSkipsFailedTracks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok_sv.sami", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<SAMI>ok</SAMI>"))
	})
	mux.HandleFunc("/bad_en.sami", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "name": "NotFound"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	gw, _ := newTestGateway(t)
	s := NewSubtitles(gw, t.TempDir(), logger.NewWithLevel("error"))

	paths, err := s.Download(context.Background(), []string{ts.URL + "/ok_sv.sami", ts.URL + "/bad_en.sami"})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "sv.sami")
}

func TestDownloadEmptyList(t *testing.T) {
	gw, _ := newTestGateway(t)
	s := NewSubtitles(gw, t.TempDir(), logger.NewWithLevel("error"))

	paths, err := s.Download(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, paths)
}
