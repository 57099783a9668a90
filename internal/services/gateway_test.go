package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripTemplates(t *testing.T) {
	cases := map[string]string{
		"https://c.example/series{?dtg}":                       "https://c.example/series",
		"https://c.example/search{?query,letter}{&abc}":        "https://c.example/search",
		"https://c.example/img.jpg{?width,height}":             "https://c.example/img.jpg",
		"https://c.example/plain":                              "https://c.example/plain",
		"https://c.example/a{?x}/b{?y}":                        "https://c.example/a/b",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripTemplates(in))
	}
}

func TestCheckAPIError(t *testing.T) {
	err := CheckAPIError([]byte(`{"success": false, "name": "MissingSessionCookieError"}`))
	require.NotNil(t, err)
	assert.Equal(t, "MissingSessionCookieError", err.Code)

	assert.Nil(t, CheckAPIError([]byte(`{"success": true}`)))
	assert.Nil(t, CheckAPIError([]byte(`{"type": "page"}`)))
	assert.Nil(t, CheckAPIError([]byte(`#EXTM3U`)))
	assert.Nil(t, CheckAPIError(nil))

	unnamed := CheckAPIError([]byte(`{"success": false}`))
	require.NotNil(t, unnamed)
	assert.Equal(t, "UnknownApiError", unnamed.Code)
}

func TestRequestStripsTemplatesBeforeDispatch(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		w.Write([]byte(`{"type":"page"}`))
	}))
	defer ts.Close()

	gw, _ := newTestGateway(t)
	_, err := gw.Get(context.Background(), ts.URL+"/series{?dtg,sort}")
	require.NoError(t, err)
	assert.Equal(t, "/series", gotPath)
}

func TestRequestReturnsAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "name": "PersistentLoginError"}`))
	}))
	defer ts.Close()

	gw, _ := newTestGateway(t)
	_, err := gw.Get(context.Background(), ts.URL)
	assert.True(t, IsAPICode(err, "PersistentLoginError"))
}

func TestRequestPersistsCookiesOnFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sessionToken", Value: "tok"})
		w.Write([]byte(`{"success": false, "name": "SomeError"}`))
	}))
	defer ts.Close()

	gw, session := newTestGateway(t)
	_, err := gw.Get(context.Background(), ts.URL)
	require.Error(t, err)

	assert.Equal(t, "tok", session.CookieValue("sessionToken"))
}

func TestRequestDoesNotFollowRedirects(t *testing.T) {
	var redirectTargetHit atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	})
	mux.HandleFunc("/elsewhere", func(w http.ResponseWriter, r *http.Request) {
		redirectTargetHit.Store(true)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	gw, _ := newTestGateway(t)
	_, err := gw.Get(context.Background(), ts.URL+"/start")
	require.NoError(t, err)
	assert.False(t, redirectTargetHit.Load())
}

func TestRequestNoRetryOnAPIError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success": false, "name": "UserNotAuthorizedForContentError"}`))
	}))
	defer ts.Close()

	gw, _ := newTestGateway(t)
	_, err := gw.Get(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetPageDecodesLinksInOrder(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"type": "page",
			"_links": {
				"self": {"href": "https://c/start"},
				"viaplay:sections": [
					{"href": "https://c/serier", "title": "Series"},
					{"href": "https://c/filmer", "title": "Movies"}
				],
				"viaplay:search": {"href": "https://c/search{?query}"}
			}
		}`))
	}))
	defer ts.Close()

	gw, _ := newTestGateway(t)
	page, err := gw.GetPage(context.Background(), ts.URL, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"self", "viaplay:sections", "viaplay:search"}, page.Links.Rels())
	sections := page.Links.GetAll("viaplay:sections")
	require.Len(t, sections, 2)
	assert.Equal(t, "Series", sections[0].Title)

	single, ok := page.Links.Get("viaplay:search")
	require.True(t, ok)
	assert.Equal(t, "https://c/search{?query}", single.Href)
}
