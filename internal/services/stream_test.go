package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/goviaplay/internal/constants"
	"github.com/amaumene/goviaplay/internal/database"
	"github.com/amaumene/goviaplay/pkg/logger"
)

func newTestResolver(t *testing.T, streamBase, rootURL string) (*Resolver, *database.SessionStore) {
	t.Helper()
	gw, session := newTestGateway(t)
	log := logger.NewWithLevel("error")
	cat := NewCatalog(gw, NewClassifier(), testConfig(), nil, log)
	cat.rootURL = rootURL
	r := NewResolver(gw, cat, testConfig(), session, log)
	r.streamURL = func(key string) string { return streamBase + "/" + key }
	return r, session
}

const streamDocJSON = `{
	"profileId": "profile-9",
	"_links": {
		"viaplay:media": {"href": "https://cdn/manifest.mpd{?foo}"},
		"viaplay:license": {"href": "https://drm/license?token={widevineChallenge}", "releasePid": "pid-1"},
		"viaplay:sami": [
			{"href": "https://cdn/subs_sv.sami"},
			{"href": "https://cdn/subs_en.sami"}
		]
	}
}`

func TestResolveByGUID(t *testing.T) {
	var gotParams map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/byguid", r.URL.Path)
		q := r.URL.Query()
		gotParams = map[string]string{
			"guid": q.Get("guid"), "deviceName": q.Get("deviceName"),
			"deviceType": q.Get("deviceType"), "deviceKey": q.Get("deviceKey"),
		}
		w.Write([]byte(streamDocJSON))
	}))
	defer ts.Close()

	r, session := newTestResolver(t, ts.URL, "http://unused")
	desc, err := r.Resolve(context.Background(), "guid-1", ResolveOptions{})
	require.NoError(t, err)

	assert.Equal(t, "guid-1", gotParams["guid"])
	assert.Equal(t, "web", gotParams["deviceName"])
	assert.Equal(t, "pc", gotParams["deviceType"])
	assert.Equal(t, "pcdash-se", gotParams["deviceKey"])

	assert.Equal(t, "https://cdn/manifest.mpd", desc.ManifestURL)
	assert.Equal(t, constants.ManifestMimeType, desc.MimeType)
	assert.Equal(t, constants.DRMSystem, desc.DRMSystem)
	assert.Equal(t, "https://drm/license?token=", desc.LicenseURL)
	assert.Equal(t, "https://drm/license?token=B{SSM}|||JBlicense", desc.LicenseKey)
	assert.Equal(t, "pid-1", desc.ReleasePid)
	assert.Equal(t, []string{"https://cdn/subs_sv.sami", "https://cdn/subs_en.sami"}, desc.Subtitles)

	// Profile id from the stream response is captured for the starred
	// list.
	assert.Equal(t, "profile-9", session.ProfileID())
}

func TestResolveManifestFallbackOrder(t *testing.T) {
	cases := []struct {
		name  string
		links string
		want  string
	}{
		{
			name: "media preferred over all",
			links: `"viaplay:media": {"href": "https://cdn/media.mpd"},
				"viaplay:fallbackMedia": [{"href": "https://cdn/fallback.mpd"}],
				"viaplay:playlist": {"href": "https://cdn/playlist.m3u8"},
				"viaplay:encryptedPlaylist": {"href": "https://cdn/enc.m3u8"}`,
			want: "https://cdn/media.mpd",
		},
		{
			name: "fallbackMedia first entry",
			links: `"viaplay:fallbackMedia": [{"href": "https://cdn/fb1.mpd"}, {"href": "https://cdn/fb2.mpd"}],
				"viaplay:playlist": {"href": "https://cdn/playlist.m3u8"}`,
			want: "https://cdn/fb1.mpd",
		},
		{
			name:  "playlist before encrypted",
			links: `"viaplay:playlist": {"href": "https://cdn/playlist.m3u8"}, "viaplay:encryptedPlaylist": {"href": "https://cdn/enc.m3u8"}`,
			want:  "https://cdn/playlist.m3u8",
		},
		{
			name:  "encrypted playlist last resort",
			links: `"viaplay:encryptedPlaylist": {"href": "https://cdn/enc.m3u8"}`,
			want:  "https://cdn/enc.m3u8",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"_links": {%s}}`, tc.links)
			}))
			defer ts.Close()

			r, _ := newTestResolver(t, ts.URL, "http://unused")
			desc, err := r.Resolve(context.Background(), "g", ResolveOptions{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, desc.ManifestURL)
		})
	}
}

func TestResolveNoManifest(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_links": {"self": {"href": "x"}}}`))
	}))
	defer ts.Close()

	r, _ := newTestResolver(t, ts.URL, "http://unused")
	_, err := r.Resolve(context.Background(), "g", ResolveOptions{})

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
}

func TestResolveFallsBackToByMediaGUID(t *testing.T) {
	var byguid, bymedia atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/byguid", func(w http.ResponseWriter, r *http.Request) {
		byguid.Add(1)
		w.Write([]byte(`{"success": false, "name": "UnknownProductError"}`))
	})
	mux.HandleFunc("/bymediaguid", func(w http.ResponseWriter, r *http.Request) {
		bymedia.Add(1)
		assert.Equal(t, "g", r.URL.Query().Get("mediaGuid"))
		w.Write([]byte(`{"_links": {"viaplay:media": {"href": "https://cdn/old.mpd"}}}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	r, _ := newTestResolver(t, ts.URL, "http://unused")
	desc, err := r.Resolve(context.Background(), "g", ResolveOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn/old.mpd", desc.ManifestURL)
	assert.Equal(t, int32(1), byguid.Load())
	assert.Equal(t, int32(1), bymedia.Load())
}

func TestResolveTerminalErrorsDoNotFallBack(t *testing.T) {
	for _, code := range []string{
		constants.ErrUserNotAuthorized,
		constants.ErrRegionBlocked,
		constants.ErrConcurrentStreams,
		constants.ErrMissingSessionCookie,
	} {
		t.Run(code, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				fmt.Fprintf(w, `{"success": false, "name": %q}`, code)
			}))
			defer ts.Close()

			r, _ := newTestResolver(t, ts.URL, "http://unused")
			_, err := r.Resolve(context.Background(), "g", ResolveOptions{})
			assert.True(t, IsAPICode(err, code))
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestResolvePinChallengeSingleRetry(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("pgPin") == "1234" {
			w.Write([]byte(`{"_links": {"viaplay:media": {"href": "https://cdn/adult.mpd"}}}`))
			return
		}
		w.Write([]byte(`{"success": false, "name": "ParentalGuidancePinChallengeNeededError"}`))
	}))
	defer ts.Close()

	r, _ := newTestResolver(t, ts.URL, "http://unused")

	// First attempt without PIN surfaces the challenge to the caller.
	_, err := r.Resolve(context.Background(), "g", ResolveOptions{})
	assert.True(t, IsAPICode(err, constants.ErrParentalGuidancePinNeeded))

	// Caller retries once with the PIN.
	desc, err := r.Resolve(context.Background(), "g", ResolveOptions{PIN: "1234"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/adult.mpd", desc.ManifestURL)
}

func TestResolveWrongPinDoesNotLoop(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success": false, "name": "ParentalGuidancePinChallengeNeededError"}`))
	}))
	defer ts.Close()

	r, _ := newTestResolver(t, ts.URL, "http://unused")
	_, err := r.Resolve(context.Background(), "g", ResolveOptions{PIN: "0000"})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveURLIdent(t *testing.T) {
	var ts *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/product/42", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"type": "product",
			"_embedded": {"viaplay:product": {"type": "movie", "system": {"guid": "from-url"}, "content": {"title": "M"}}}
		}`))
	})
	mux.HandleFunc("/byguid", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "from-url", r.URL.Query().Get("guid"))
		w.Write([]byte(`{"_links": {"viaplay:media": {"href": "https://cdn/m.mpd"}}}`))
	})
	ts = httptest.NewServer(mux)
	defer ts.Close()

	r, _ := newTestResolver(t, ts.URL, "http://unused")
	desc, err := r.Resolve(context.Background(), ts.URL+"/product/42{?dtg}", ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/m.mpd", desc.ManifestURL)
}

func TestResolveChannelIndirection(t *testing.T) {
	var ts *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"type": "page",
			"user": {"firstName": "T"},
			"_links": {
				"self": {"href": "%[1]s/"},
				"viaplay:tv": {"href": "%[1]s/channels{?dtg}", "title": "TV"}
			}
		}`, ts.URL)
	})
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(channelsJSON("Now Playing")))
	})
	mux.HandleFunc("/byguid", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "now-on", r.URL.Query().Get("guid"))
		w.Write([]byte(`{"_links": {"viaplay:media": {"href": "https://cdn/live.mpd"}}}`))
	})
	ts = httptest.NewServer(mux)
	defer ts.Close()

	r, _ := newTestResolver(t, ts.URL, ts.URL)
	r.catalog.classifier.now = func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	}

	desc, err := r.Resolve(context.Background(), "100001", ResolveOptions{TVE: true})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/live.mpd", desc.ManifestURL)
}

func TestIsChannelGUID(t *testing.T) {
	assert.True(t, isChannelGUID("100001"))
	assert.False(t, isChannelGUID("abc123"))
	assert.False(t, isChannelGUID(""))
	assert.False(t, isChannelGUID("100-001"))
}
