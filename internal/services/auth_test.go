package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/goviaplay/internal/config"
	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/internal/models"
	"github.com/amaumene/goviaplay/pkg/logger"
)

func newTestAuth(t *testing.T, cfg *config.Config, apiBase string) (*Auth, *database.SessionStore) {
	t.Helper()
	gw, session := newTestGateway(t)
	a := NewAuth(gw, cfg, session, logger.NewWithLevel("error"))
	a.apiBase = apiBase
	a.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	return a, session
}

func TestLoginSendsCredentials(t *testing.T) {
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"deviceKey":  q.Get("deviceKey"),
			"username":   q.Get("username"),
			"password":   q.Get("password"),
			"persistent": q.Get("persistent"),
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.Username = "user@example.com"
	cfg.Password = "hunter2"
	a, _ := newTestAuth(t, cfg, ts.URL)

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "xdk-se", got["deviceKey"])
	assert.Equal(t, "user@example.com", got["username"])
	assert.Equal(t, "true", got["persistent"])
}

func TestLoginWithoutCredentials(t *testing.T) {
	a, _ := newTestAuth(t, testConfig(), "http://unused")
	err := a.Login(context.Background())

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestWithSessionRetriesOnceOnMissingCookie(t *testing.T) {
	var validates atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		validates.Add(1)
		w.Write([]byte(`{"success": true}`))
	}))
	defer ts.Close()

	a, _ := newTestAuth(t, testConfig(), ts.URL)

	var calls int
	err := a.WithSession(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &APIError{Code: constants.ErrMissingSessionCookie}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(1), validates.Load())
}

func TestWithSessionBoundedRetry(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true}`))
	}))
	defer ts.Close()

	a, _ := newTestAuth(t, testConfig(), ts.URL)

	var calls int
	err := a.WithSession(context.Background(), func() error {
		calls++
		return &APIError{Code: constants.ErrMissingSessionCookie}
	})
	assert.True(t, IsAPICode(err, constants.ErrMissingSessionCookie))
	assert.Equal(t, 2, calls)
}

func TestWithSessionOtherErrorsPassThrough(t *testing.T) {
	a, _ := newTestAuth(t, testConfig(), "http://unused")

	var calls int
	err := a.WithSession(context.Background(), func() error {
		calls++
		return &APIError{Code: constants.ErrRegionBlocked}
	})
	assert.True(t, IsAPICode(err, constants.ErrRegionBlocked))
	assert.Equal(t, 1, calls)
}

func TestDeviceRegistrationPendingThenAuthorized(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/device/authorized", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			w.Write([]byte(`{"success": false, "name": "DeviceAuthorizationPendingError"}`))
			return
		}
		w.Write([]byte(`{"success": true}`))
	})
	mux.HandleFunc("/persistentLogin/v1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	a, _ := newTestAuth(t, testConfig(), ts.URL)
	act := &models.ActivationData{UserCode: "ABC123", DeviceToken: "tok", ExpiresSeconds: 600, IntervalSeconds: 1}

	var fractions []float64
	err := a.DeviceRegistration(context.Background(), act, func(elapsed float64) {
		fractions = append(fractions, elapsed)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), polls.Load())

	// Progress reports the elapsed fraction of the code lifetime: it
	// starts near zero and never decreases.
	require.GreaterOrEqual(t, len(fractions), 3)
	assert.Less(t, fractions[0], 0.1)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
		assert.LessOrEqual(t, fractions[i], 1.0)
	}
}

func TestDeviceRegistrationNotFoundIsExpired(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "name": "DeviceAuthorizationNotFound"}`))
	}))
	defer ts.Close()

	a, _ := newTestAuth(t, testConfig(), ts.URL)
	act := &models.ActivationData{ExpiresSeconds: 600, IntervalSeconds: 1}

	var authErr *AuthError
	require.ErrorAs(t, a.DeviceRegistration(context.Background(), act, nil), &authErr)
}

func TestDeviceRegistrationExpiredDeadline(t *testing.T) {
	a, _ := newTestAuth(t, testConfig(), "http://unused")
	act := &models.ActivationData{ExpiresSeconds: 0, IntervalSeconds: 1}

	var authErr *AuthError
	require.ErrorAs(t, a.DeviceRegistration(context.Background(), act, nil), &authErr)
	assert.Contains(t, authErr.Reason, "expired")
}

func TestDeviceRegistrationCancellable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "name": "DeviceAuthorizationPendingError"}`))
	}))
	defer ts.Close()

	a, _ := newTestAuth(t, testConfig(), ts.URL)
	ctx, cancel := context.WithCancel(context.Background())

	var polls int
	a.sleep = func(ctx context.Context, d time.Duration) error {
		polls++
		if polls >= 2 {
			cancel()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	act := &models.ActivationData{ExpiresSeconds: 600, IntervalSeconds: 1}
	err := a.DeviceRegistration(ctx, act, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestActivationDataDecodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("deviceId"))
		w.Write([]byte(`{"verificationUrl": "https://viaplay.se/activate", "userCode": "XYZ789",
			"deviceToken": "dt", "expires": 900, "interval": 5}`))
	}))
	defer ts.Close()

	a, _ := newTestAuth(t, testConfig(), ts.URL)
	act, err := a.ActivationData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "XYZ789", act.UserCode)
	assert.Equal(t, 900, act.ExpiresSeconds)
	assert.Equal(t, 5, act.IntervalSeconds)
}

func TestLogoutResetsLocalState(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a, session := newTestAuth(t, testConfig(), ts.URL)
	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	session.SetCookies(u, []*http.Cookie{{Name: "sessionToken", Value: "tok"}})

	require.NoError(t, a.Logout(context.Background()))
	assert.Empty(t, session.CookieValue("sessionToken"))
}
