package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/pkg/logger"
)

// MyList toggles products on the account's starred list.
type MyList struct {
	gateway *Gateway
	cfg     *config.Config
	session *database.SessionStore
	logger  logger.Logger
}

// NewMyList builds the starred-list client.
func NewMyList(gw *Gateway, cfg *config.Config, session *database.SessionStore, log logger.Logger) *MyList {
	return &MyList{gateway: gw, cfg: cfg, session: session, logger: log}
}

// Toggle adds (add=true) or removes a product from the starred list.
// The profile id comes from configuration, falling back to the one
// captured from the last stream request.
func (m *MyList) Toggle(ctx context.Context, programGUID string, add bool) error {
	profile := m.cfg.ProfileID
	if profile == "" {
		profile = m.session.ProfileID()
	}
	params := url.Values{"id": {programGUID}}
	if profile != "" {
		params.Set("profileId", profile)
	}

	method := http.MethodPut
	if !add {
		method = http.MethodDelete
	}
	endpoint := constants.MyListURL(m.cfg.TLD(), m.cfg.Country)
	if m.cfg.ContentBaseURL != "" {
		endpoint = m.cfg.ContentBaseURL + "/myList"
	}
	_, err := m.gateway.Request(ctx, method, endpoint, params, nil, nil)
	if err != nil {
		return err
	}
	m.logger.Debugf("[MyList] %s %s", method, programGUID)
	return nil
}
