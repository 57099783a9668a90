// Package httputil builds the HTTP clients used for vendor API traffic.
package httputil

import (
	"net/http"
	"time"
)

// Pool sizing for the small set of vendor hosts the clients talk to.
const (
	maxIdleConns        = 10
	maxIdleConnsPerHost = 2
	idleConnTimeout     = 30 * time.Second
)

// NewHTTPClient returns a client with pooled connections and the given
// request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
			IdleConnTimeout:     idleConnTimeout,
		},
	}
}

// NewAPIClient returns a pooled client bound to jar that never follows
// redirects. The APIs signal state through 3xx responses, so a redirect
// must surface to the caller as the final answer.
func NewAPIClient(timeout time.Duration, jar http.CookieJar) *http.Client {
	client := NewHTTPClient(timeout)
	client.Jar = jar
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}
