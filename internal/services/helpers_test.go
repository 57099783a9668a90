package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/pkg/logger"
)

func testConfig() *config.Config {
	cfg := &config.Config{Country: "se", Port: "5000"}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func newTestSession(t *testing.T) *database.SessionStore {
	t.Helper()
	s, err := database.NewSessionStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestGateway(t *testing.T) (*Gateway, *database.SessionStore) {
	t.Helper()
	session := newTestSession(t)
	return NewGateway(session, logger.NewWithLevel("error")), session
}

func newTestCatalog(t *testing.T, rootURL string) (*Catalog, *database.SessionStore) {
	t.Helper()
	gw, session := newTestGateway(t)
	cat := NewCatalog(gw, NewClassifier(), testConfig(), nil, logger.NewWithLevel("error"))
	cat.rootURL = rootURL
	return cat, session
}
