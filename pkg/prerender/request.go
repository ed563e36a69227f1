package prerender

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Request identifies one page to prerender.
type Request struct {
	// Path is the origin-relative path without query string; it drives the route policy.
	Path string

	// RequestURI is the path plus query string as received.
	RequestURI string

	// TargetURL is the upstream base followed by RequestURI. It is the URL
	// rendered and the input of the cache key.
	TargetURL string
}

// NewRequest builds a Request from the upstream base URL and a request URI
// such as "/products?page=2".
func NewRequest(upstream, requestURI string) (Request, error) {
	if requestURI == "" {
		requestURI = "/"
	}
	if !strings.HasPrefix(requestURI, "/") {
		return Request{}, fmt.Errorf("request uri %q must start with /", requestURI)
	}

	u, err := url.ParseRequestURI(requestURI)
	if err != nil {
		return Request{}, fmt.Errorf("parse request uri: %w", err)
	}

	return Request{
		Path:       u.Path,
		RequestURI: requestURI,
		TargetURL:  upstream + requestURI,
	}, nil
}

// RequestFromHTTP builds a Request from an inbound HTTP request.
func RequestFromHTTP(upstream string, r *http.Request) Request {
	return Request{
		Path:       r.URL.Path,
		RequestURI: r.URL.RequestURI(),
		TargetURL:  upstream + r.URL.RequestURI(),
	}
}
