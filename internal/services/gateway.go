package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/avast/retry-go/v4"

	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/internal/models"
	"github.com/amaumene/goviaplay/pkg/httputil"
	"github.com/amaumene/goviaplay/pkg/logger"
	"github.com/amaumene/goviaplay/pkg/ratelimiter"
)

// uriTemplate matches RFC 6570 template fragments embedded in hrefs.
var uriTemplate = regexp.MustCompile(`\{.+?\}`)

// StripTemplates removes every URI-template fragment from a href.
func StripTemplates(href string) string {
	return uriTemplate.ReplaceAllString(href, "")
}

// apiEnvelope probes a response body for the vendor's structured error
// form without committing to a full schema.
type apiEnvelope struct {
	Success *bool  `json:"success"`
	Name    string `json:"name"`
}

// Gateway performs all HTTP traffic against the vendor APIs: template
// stripping, cookie persistence, rate limiting, transport retry and
// structured-error detection.
type Gateway struct {
	client  *http.Client
	session *database.SessionStore
	limiter *ratelimiter.TokenBucket
	logger  logger.Logger
}

// NewGateway builds a gateway bound to the session store's cookie jar.
// Redirects are never followed; a 3xx is a terminal response.
func NewGateway(session *database.SessionStore, log logger.Logger) *Gateway {
	client := httputil.NewAPIClient(constants.HTTPTimeout, session)
	return &Gateway{
		client:  client,
		session: session,
		limiter: ratelimiter.NewTokenBucket(constants.ContentRateBurst, constants.ContentRateRefill),
		logger:  log,
	}
}

// Request dispatches one API call. The raw href may carry template
// fragments; they are stripped first. params are appended to the query
// string. Cookies received are persisted whether or not the call
// succeeded. A success:false JSON body is returned as *APIError;
// non-JSON bodies pass through untouched.
func (g *Gateway) Request(ctx context.Context, method, rawURL string, params url.Values, payload url.Values, headers map[string]string) ([]byte, error) {
	stripped := StripTemplates(rawURL)
	if stripped != rawURL {
		g.logger.Debugf("[Gateway] stripped templates: %s -> %s", rawURL, stripped)
	}

	u, err := url.Parse(stripped)
	if err != nil {
		return nil, fmt.Errorf("gateway: bad url %q: %w", stripped, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var body []byte
	err = retry.Do(
		func() error {
			var reqBody io.Reader
			if payload != nil {
				reqBody = strings.NewReader(payload.Encode())
			}
			req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if payload != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			for k, v := range headers {
				req.Header.Set(k, v)
			}

			g.limiter.Wait()
			resp, err := g.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Attempts(constants.TransportRetryAttempts),
		retry.Delay(constants.TransportRetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)

	// Cookies are persisted even on failure so a login that errored
	// after Set-Cookie still sticks.
	if saveErr := g.session.Save(); saveErr != nil {
		g.logger.Warnf("[Gateway] saving session: %v", saveErr)
	}
	if err != nil {
		return nil, fmt.Errorf("gateway: %s %s: %w", method, u.Path, err)
	}

	if apiErr := CheckAPIError(body); apiErr != nil {
		g.logger.Debugf("[Gateway] api error %s from %s", apiErr.Code, u.Path)
		return body, apiErr
	}
	return body, nil
}

// Get is a convenience wrapper for parameterless GETs.
func (g *Gateway) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return g.Request(ctx, http.MethodGet, rawURL, nil, nil, nil)
}

// GetPage fetches and decodes a hypermedia catalog document.
func (g *Gateway) GetPage(ctx context.Context, rawURL string, params url.Values, headers map[string]string) (*models.Page, error) {
	body, err := g.Request(ctx, http.MethodGet, rawURL, params, nil, headers)
	if err != nil {
		return nil, err
	}
	var page models.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("gateway: decoding page from %s: %w", StripTemplates(rawURL), err)
	}
	return &page, nil
}

// CheckAPIError inspects a body for the structured error form. It
// returns nil for non-JSON bodies, JSON without the success field, and
// success:true responses.
func CheckAPIError(body []byte) *APIError {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var env apiEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil
	}
	if env.Success != nil && !*env.Success {
		code := env.Name
		if code == "" {
			code = "UnknownApiError"
		}
		return &APIError{Code: code}
	}
	return nil
}
