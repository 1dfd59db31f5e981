package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// forwardedHeaders are copied from the client request to the upstream one.
var forwardedHeaders = []string{"Content-Type", "Accept", "X-Request-Id"}

// ServiceProxy forwards requests to one upstream service, keeping method,
// path, query string and body.
type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request) (*http.Response, error) {
	target := p.baseURL + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.Method, target, err)
	}
	return resp, nil
}
