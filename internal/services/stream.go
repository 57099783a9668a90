package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/internal/models"
	"github.com/amaumene/goviaplay/pkg/logger"
)

// ResolveOptions adjust stream resolution.
type ResolveOptions struct {
	// PIN is a parental guidance PIN supplied after a challenge. At
	// most one retry is made with it.
	PIN string
	// TVE marks the ident as a live channel GUID needing EPG
	// indirection.
	TVE bool
}

// streamDocument is the playback response from the stream API.
type streamDocument struct {
	Links     models.Links `json:"_links"`
	ProfileID string       `json:"profileId"`
}

// Resolver turns a product identifier into a playable stream
// descriptor.
type Resolver struct {
	gateway *Gateway
	catalog *Catalog
	cfg     *config.Config
	session *database.SessionStore
	logger  logger.Logger

	// streamURL builds the endpoint for an API key segment.
	streamURL func(key string) string
}

// NewResolver builds the resolver.
func NewResolver(gw *Gateway, cat *Catalog, cfg *config.Config, session *database.SessionStore, log logger.Logger) *Resolver {
	return &Resolver{
		gateway: gw,
		catalog: cat,
		cfg:     cfg,
		session: session,
		logger:  log,
		streamURL: func(key string) string {
			if cfg.StreamBaseURL != "" {
				return cfg.StreamBaseURL + "/" + key
			}
			return constants.StreamAPIURL(cfg.TLD(), key)
		},
	}
}

// Resolve resolves ident, which is either a product GUID or a catalog
// URL of the product, into a stream descriptor. Channel idents go
// through EPG indirection to the currently airing program first.
func (r *Resolver) Resolve(ctx context.Context, ident string, opts ResolveOptions) (*models.StreamDescriptor, error) {
	guid := ident
	var err error

	if strings.HasPrefix(ident, "http") {
		guid, err = r.guidFromURL(ctx, ident)
		if err != nil {
			return nil, err
		}
	}
	if opts.TVE && isChannelGUID(guid) {
		guid, err = r.airingProgramGUID(ctx, guid)
		if err != nil {
			return nil, err
		}
	}

	doc, err := r.fetchStream(ctx, guid, opts.PIN)
	if err != nil {
		return nil, err
	}
	return r.buildDescriptor(guid, doc)
}

// guidFromURL fetches a product document and extracts its GUID.
func (r *Resolver) guidFromURL(ctx context.Context, productURL string) (string, error) {
	page, err := r.gateway.GetPage(ctx, productURL, nil, nil)
	if err != nil {
		return "", err
	}
	if page.Embedded.Product != nil && page.Embedded.Product.GUID() != "" {
		return page.Embedded.Product.GUID(), nil
	}
	if len(page.Embedded.Products) > 0 && page.Embedded.Products[0].GUID() != "" {
		return page.Embedded.Products[0].GUID(), nil
	}
	return "", &ResolutionError{Ident: productURL, Reason: "document carries no product guid"}
}

// isChannelGUID reports whether a guid has the all-numeric channel
// form rather than the alphanumeric program form.
func isChannelGUID(guid string) bool {
	if guid == "" {
		return false
	}
	for _, r := range guid {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// airingProgramGUID maps a channel GUID to the GUID of its currently
// airing program via the channels schedule.
func (r *Resolver) airingProgramGUID(ctx context.Context, channelGUID string) (string, error) {
	channelsURL, err := r.channelsURL(ctx)
	if err != nil {
		return "", err
	}
	for channelsURL != "" {
		entries, next, err := r.catalog.ChannelEntries(ctx, channelsURL)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			if !channelMatches(&e.Channel, channelGUID) {
				continue
			}
			airing := currentlyAiring(r.catalog.classifier, e.Programs)
			if airing == nil {
				return "", &ResolutionError{Ident: channelGUID, Reason: "channel has no broadcast right now"}
			}
			return airing.GUID(), nil
		}
		channelsURL = next
	}
	return "", &ResolutionError{Ident: channelGUID, Reason: "channel not found in schedule"}
}

func channelMatches(ch *models.Product, guid string) bool {
	if ch.GUID() == guid {
		return true
	}
	for _, g := range ch.EPG.ChannelGuids {
		if g == guid {
			return true
		}
	}
	return false
}

// channelsURL finds the channels section advertised by the root page.
func (r *Resolver) channelsURL(ctx context.Context) (string, error) {
	page, err := r.gateway.GetPage(ctx, r.catalog.RootURL(), nil, nil)
	if err != nil {
		return "", err
	}
	for _, rel := range page.Links.Rels() {
		if link, ok := page.Links.Get(rel); ok && strings.Contains(link.Href, "channels") {
			return StripTemplates(link.Href), nil
		}
	}
	return "", &ResolutionError{Ident: "channels", Reason: "root page advertises no channels section"}
}

// fetchStream requests the playback document. The current API keys
// streams by guid; older regions still use bymediaguid, so an
// unrecognized-product failure falls back once. A PIN challenge is
// retried exactly once when a PIN was supplied.
func (r *Resolver) fetchStream(ctx context.Context, guid, pin string) (*streamDocument, error) {
	doc, err := r.requestStream(ctx, "byguid", "guid", guid, pin)
	if err == nil {
		return doc, nil
	}

	if IsAPICode(err, constants.ErrParentalGuidancePinNeeded) {
		if pin == "" {
			return nil, err
		}
		// The PIN was already sent and rejected.
		return nil, &AuthError{Reason: "parental guidance pin rejected", Cause: err}
	}
	if terminalStreamError(err) {
		return nil, err
	}

	r.logger.Debugf("[Resolver] byguid failed for %s, trying bymediaguid: %v", guid, err)
	doc, fallbackErr := r.requestStream(ctx, "bymediaguid", "mediaGuid", guid, pin)
	if fallbackErr != nil {
		return nil, err
	}
	return doc, nil
}

// terminalStreamError reports API failures that the bymediaguid
// fallback cannot fix.
func terminalStreamError(err error) bool {
	for _, code := range []string{
		constants.ErrMissingSessionCookie,
		constants.ErrPersistentLogin,
		constants.ErrUserNotAuthorized,
		constants.ErrPurchaseConfirmation,
		constants.ErrRegionBlocked,
		constants.ErrConcurrentStreams,
	} {
		if IsAPICode(err, code) {
			return true
		}
	}
	return false
}

func (r *Resolver) requestStream(ctx context.Context, key, guidParam, guid, pin string) (*streamDocument, error) {
	deviceID, err := r.session.DeviceID()
	if err != nil {
		return nil, err
	}
	params := url.Values{
		guidParam:    {guid},
		"deviceId":   {deviceID},
		"deviceName": {constants.StreamDeviceName},
		"deviceType": {constants.StreamDeviceType},
		"deviceKey":  {constants.StreamDeviceKey(r.cfg.Country)},
		"userAgent":  {constants.StreamUserAgent},
	}
	if pin != "" {
		params.Set("pgPin", pin)
	}
	headers := map[string]string{"User-Agent": constants.StreamUserAgent}

	body, err := r.gateway.Request(ctx, http.MethodGet, r.streamURL(key), params, nil, headers)
	if err != nil {
		return nil, err
	}
	var doc streamDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding stream document: %w", err)
	}
	return &doc, nil
}

// buildDescriptor extracts the playable stream from a playback
// document. Manifest sources are tried in preference order; a document
// with none of them is unplayable.
func (r *Resolver) buildDescriptor(guid string, doc *streamDocument) (*models.StreamDescriptor, error) {
	if doc.ProfileID != "" {
		if err := r.session.SetProfileID(doc.ProfileID); err != nil {
			r.logger.Warnf("[Resolver] persisting profile id: %v", err)
		}
	}

	manifest := manifestHref(doc.Links)
	if manifest == "" {
		return nil, &ResolutionError{Ident: guid, Reason: "no manifest in playback document"}
	}

	desc := &models.StreamDescriptor{
		ManifestURL: manifest,
		MimeType:    constants.ManifestMimeType,
		UserAgent:   constants.StreamUserAgent,
	}

	if lic, ok := doc.Links.Get("viaplay:license"); ok {
		desc.LicenseURL = strings.Replace(lic.Href, constants.LicenseChallengePlaceholder, "", 1)
		desc.ReleasePid = lic.ReleasePid
		desc.DRMSystem = constants.DRMSystem
		desc.LicenseKey = strings.Replace(lic.Href, constants.LicenseChallengePlaceholder,
			constants.LicenseChallengeToken, 1) + constants.LicenseKeySuffix
	}
	for _, sub := range doc.Links.GetAll("viaplay:sami") {
		if sub.Href != "" {
			desc.Subtitles = append(desc.Subtitles, sub.Href)
		}
	}
	return desc, nil
}

// manifestHref picks the manifest in preference order.
func manifestHref(links models.Links) string {
	for _, rel := range []string{"viaplay:media", "viaplay:fallbackMedia", "viaplay:playlist", "viaplay:encryptedPlaylist"} {
		if href := links.Href(rel); href != "" {
			return StripTemplates(href)
		}
	}
	return ""
}
