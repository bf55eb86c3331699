package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// Backend represents an upstream server with an immutable identity.
// Its health flag lives in the Registry.
type Backend struct {
	name     string
	url      *url.URL
	affinity ContentType
	color    string
	proxy    *httputil.ReverseProxy
}

type forwardErrKey struct{}

// Name returns the backend's unique name.
func (b *Backend) Name() string {
	return b.name
}

// URL returns the backend server URL.
func (b *Backend) URL() *url.URL {
	return b.url
}

// Affinity returns the content type the backend declares it serves best.
func (b *Backend) Affinity() ContentType {
	return b.affinity
}

// Color returns the display color used by dashboards.
func (b *Backend) Color() string {
	return b.color
}

// Forward proxies r to the backend and writes the upstream response to w.
// The method, headers (except Host), body and cookies are sent verbatim.
// It returns an error when the upstream could not be reached or did not
// answer before ctx expired; in that case nothing has been written to w.
func (b *Backend) Forward(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var forwardErr error
	ctx = context.WithValue(ctx, forwardErrKey{}, &forwardErr)

	b.proxy.ServeHTTP(w, r.WithContext(ctx))

	if forwardErr != nil {
		return fmt.Errorf("forward to %s: %w", b.name, forwardErr)
	}

	return nil
}

func captureError(_ http.ResponseWriter, r *http.Request, err error) {
	if slot, ok := r.Context().Value(forwardErrKey{}).(*error); ok {
		*slot = err
	}
}

// forwardingHeaders are stripped from the outbound request before Rewrite
// runs; clients' values are passed through unchanged.
var forwardingHeaders = []string{"Forwarded", "X-Forwarded-For", "X-Forwarded-Host", "X-Forwarded-Proto"}

func relayForwardingHeaders(pr *httputil.ProxyRequest) {
	for _, h := range forwardingHeaders {
		if values, ok := pr.In.Header[h]; ok {
			pr.Out.Header[h] = append([]string(nil), values...)
		}
	}
}

// New creates a backend descriptor and the reverse proxy used to reach it.
func New(name string, target *url.URL, affinity ContentType, color string) *Backend {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			relayForwardingHeaders(pr)
		},
		ErrorHandler: captureError,
	}

	return &Backend{
		name:     name,
		url:      target,
		affinity: affinity,
		color:    color,
		proxy:    proxy,
	}
}
