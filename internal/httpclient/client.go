package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// RequestBuilder produces identical GET requests for one endpoint.
type RequestBuilder struct {
	target  string
	headers http.Header
}

// NewRequestBuilder validates target and headers once so Build cannot fail on
// bad configuration while load is being generated.
func NewRequestBuilder(target string, headers map[string]string) (*RequestBuilder, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	if _, err := http.NewRequest(http.MethodGet, target, nil); err != nil {
		return nil, fmt.Errorf("invalid target URL %q: %w", target, err)
	}

	h := http.Header{}
	for key, value := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if canonicalKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}

		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}

		h.Set(canonicalKey, value)
	}

	return &RequestBuilder{
		target:  target,
		headers: h,
	}, nil
}

// Target returns the URL requests are sent to, or "" for a nil builder.
func (b *RequestBuilder) Target() string {
	if b == nil {
		return ""
	}
	return b.target
}

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.target, nil)
	if err != nil {
		return nil, err
	}

	if len(b.headers) > 0 {
		req.Header = b.headers.Clone()
	}

	return req, nil
}

// NewClient returns a client whose transport keeps enough idle connections per
// host that concurrent workers do not queue behind each other.
func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   256,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
