// Package geo resolves client IPs to coarse "City, Country" labels via an
// external lookup service. Resolution is best-effort: callers fall back to
// "Unknown" on any failure and the login flow is never blocked on it.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 3 * time.Second

// HTTPResolver queries GET {base}/{ip} expecting a JSON body with "city"
// and "country" fields.
type HTTPResolver struct {
	client  *http.Client
	baseURL string
}

// NewHTTPResolver builds a resolver with a bounded per-lookup timeout.
func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPResolver{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Resolve returns a "City, Country" label for ip.
func (r *HTTPResolver) Resolve(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+ip, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo service returned %d", resp.StatusCode)
	}

	var body struct {
		City    string `json:"city"`
		Country string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	switch {
	case body.City != "" && body.Country != "":
		return body.City + ", " + body.Country, nil
	case body.Country != "":
		return body.Country, nil
	default:
		return "", fmt.Errorf("geo service returned empty location")
	}
}

// StaticResolver maps IPs to fixed locations, for tests and air-gapped
// deployments.
type StaticResolver map[string]string

// Resolve implements the resolver contract over the fixed map.
func (s StaticResolver) Resolve(_ context.Context, ip string) (string, error) {
	location, ok := s[ip]
	if !ok {
		return "", fmt.Errorf("no location for %s", ip)
	}
	return location, nil
}
