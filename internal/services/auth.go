package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/internal/models"
	"github.com/amaumene/goviaplay/pkg/logger"
)

// Auth manages the session lifecycle: validation, password login,
// device pairing and the transparent re-auth policy.
type Auth struct {
	gateway *Gateway
	cfg     *config.Config
	session *database.SessionStore
	logger  logger.Logger

	// sleep is replaceable in tests to avoid real poll delays.
	sleep   func(ctx context.Context, d time.Duration) error
	apiBase string
}

// NewAuth builds the auth manager.
func NewAuth(gw *Gateway, cfg *config.Config, session *database.SessionStore, log logger.Logger) *Auth {
	apiBase := cfg.LoginBaseURL
	if apiBase == "" {
		apiBase = constants.LoginAPIURL(cfg.TLD())
	}
	return &Auth{
		gateway: gw,
		cfg:     cfg,
		session: session,
		logger:  log,
		sleep:   sleepCtx,
		apiBase: apiBase,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (a *Auth) loginAPI() string {
	return a.apiBase
}

func (a *Auth) deviceKey() string {
	return constants.DeviceKey(a.cfg.Country)
}

// ValidateSession checks whether the persisted session is still
// accepted by the backend.
func (a *Auth) ValidateSession(ctx context.Context) error {
	params := url.Values{"deviceKey": {a.deviceKey()}, "persistent": {"true"}}
	_, err := a.gateway.Request(ctx, http.MethodGet, a.loginAPI()+"/persistentLogin/v1", params, nil, nil)
	if err != nil {
		return fmt.Errorf("validating session: %w", err)
	}
	return nil
}

// Login performs password login with the configured credentials.
func (a *Auth) Login(ctx context.Context) error {
	if !a.cfg.HasCredentials() {
		return &AuthError{Reason: "no credentials configured"}
	}
	params := url.Values{
		"deviceKey":  {a.deviceKey()},
		"username":   {a.cfg.Username},
		"password":   {a.cfg.Password},
		"persistent": {"true"},
	}
	_, err := a.gateway.Request(ctx, http.MethodGet, a.loginAPI()+"/login/v1", params, nil, nil)
	if err != nil {
		return &AuthError{Reason: "password login failed", Cause: err}
	}
	a.logger.Infof("[Auth] password login succeeded")
	return nil
}

// ActivationData requests a device-pairing challenge: a short code the
// user enters at the verification URL.
func (a *Auth) ActivationData(ctx context.Context) (*models.ActivationData, error) {
	deviceID, err := a.session.DeviceID()
	if err != nil {
		return nil, err
	}
	params := url.Values{"deviceKey": {a.deviceKey()}, "deviceId": {deviceID}}
	body, err := a.gateway.Request(ctx, http.MethodGet, a.loginAPI()+"/device/code", params, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("requesting activation code: %w", err)
	}
	var act models.ActivationData
	if err := json.Unmarshal(body, &act); err != nil {
		return nil, fmt.Errorf("decoding activation data: %w", err)
	}
	return &act, nil
}

// AuthorizeDevice asks the backend once whether the user has entered
// the code. A pending or not-found state surfaces as *APIError.
func (a *Auth) AuthorizeDevice(ctx context.Context, act *models.ActivationData) error {
	deviceID, err := a.session.DeviceID()
	if err != nil {
		return err
	}
	params := url.Values{
		"deviceKey":   {a.deviceKey()},
		"deviceId":    {deviceID},
		"deviceToken": {act.DeviceToken},
		"userCode":    {act.UserCode},
	}
	_, err = a.gateway.Request(ctx, http.MethodGet, a.loginAPI()+"/device/authorized", params, nil, nil)
	return err
}

// DeviceRegistration runs the pairing poll loop until the user
// authorizes the device, the code expires, or ctx is cancelled.
// progress is called each iteration with the fraction of the code
// lifetime already elapsed; it may be nil.
func (a *Auth) DeviceRegistration(ctx context.Context, act *models.ActivationData, progress func(elapsed float64)) error {
	interval := time.Duration(act.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = constants.DefaultPairingInterval
	}
	lifetime := time.Duration(act.ExpiresSeconds) * time.Second
	deadline := time.Now().Add(lifetime)

	for {
		if progress != nil && lifetime > 0 {
			elapsed := lifetime - time.Until(deadline)
			progress(float64(elapsed) / float64(lifetime))
		}
		if time.Now().After(deadline) {
			return &AuthError{Reason: "activation code expired"}
		}

		err := a.AuthorizeDevice(ctx, act)
		switch {
		case err == nil:
			a.logger.Infof("[Auth] device authorized")
			// The backend needs a moment before the new session
			// validates.
			if err := a.sleep(ctx, constants.DevicePairingSettle); err != nil {
				return err
			}
			return a.ValidateSession(ctx)
		case IsAPICode(err, constants.ErrDeviceAuthorizationPending):
			// keep polling
		case IsAPICode(err, constants.ErrDeviceAuthorizationNotFound):
			return &AuthError{Reason: "activation code expired", Cause: err}
		default:
			return err
		}

		if err := a.sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// Logout revokes the session server-side (best effort) and always
// clears local cookie state.
func (a *Auth) Logout(ctx context.Context) error {
	params := url.Values{"deviceKey": {a.deviceKey()}}
	if _, err := a.gateway.Request(ctx, http.MethodGet, a.loginAPI()+"/logout/v1", params, nil, nil); err != nil {
		a.logger.Warnf("[Auth] server-side logout failed: %v", err)
	}
	return a.session.Reset()
}

// Reauthorize re-establishes a session: validation first, then
// password login when credentials are configured. Without credentials
// the user must pair interactively, so an AuthError is returned.
func (a *Auth) Reauthorize(ctx context.Context) error {
	if err := a.ValidateSession(ctx); err == nil {
		return nil
	}
	if a.cfg.HasCredentials() {
		return a.Login(ctx)
	}
	return &AuthError{Reason: "session invalid and no credentials configured; device pairing required"}
}

// WithSession runs op, and on a missing-session error re-authorizes
// once and retries once. Any second failure propagates.
func (a *Auth) WithSession(ctx context.Context, op func() error) error {
	err := op()
	if !IsAPICode(err, constants.ErrMissingSessionCookie) {
		return err
	}
	a.logger.Infof("[Auth] session missing, re-authorizing")
	if reauthErr := a.Reauthorize(ctx); reauthErr != nil {
		return reauthErr
	}
	return op()
}
