package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flagforge/ctfmanager/pkg/cluster"
)

// HTTPGatewaySource lists SSHGateway objects from the same cluster control
// plane cluster.HTTPApplier applies them to, rather than a typed client.
type HTTPGatewaySource struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPGatewaySource constructs an HTTPGatewaySource. client defaults to
// an *http.Client with a 10s timeout if nil.
func NewHTTPGatewaySource(baseURL, token string, client *http.Client) *HTTPGatewaySource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPGatewaySource{BaseURL: baseURL, Token: token, Client: client}
}

// List fetches every SSHGateway object cluster-wide.
func (s *HTTPGatewaySource) List(ctx context.Context) ([]cluster.SSHGateway, error) {
	endpoint := fmt.Sprintf("%s/apis/ctfmanager.flagforge.dev/v1/sshgateways", s.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list SSHGateways: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("list SSHGateways: control plane returned %s", resp.Status)
	}

	var gateways []cluster.SSHGateway
	if err := yaml.NewDecoder(resp.Body).Decode(&gateways); err != nil {
		return nil, fmt.Errorf("decode SSHGateways: %w", err)
	}
	return gateways, nil
}

// HTTPServiceResolver resolves a namespace/service pair to a dialable
// address via the control plane's service-lookup endpoint.
type HTTPServiceResolver struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPServiceResolver constructs an HTTPServiceResolver. client defaults
// to an *http.Client with a 10s timeout if nil.
func NewHTTPServiceResolver(baseURL, token string, client *http.Client) *HTTPServiceResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPServiceResolver{BaseURL: baseURL, Token: token, Client: client}
}

type serviceResolution struct {
	Addr string `json:"addr"`
}

// Resolve asks the control plane for the dialable address of service within
// namespace. A 404 response means the backend doesn't exist yet and reports
// ok=false rather than an error, so the caller's reconcile loop just retries
// on its next tick.
func (r *HTTPServiceResolver) Resolve(ctx context.Context, namespace, service string) (string, bool, error) {
	endpoint := fmt.Sprintf("%s/api/v1/namespaces/%s/services/%s/address",
		r.BaseURL, url.PathEscape(namespace), url.PathEscape(service))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, fmt.Errorf("build resolve request: %w", err)
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s/%s: %w", namespace, service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("resolve %s/%s: control plane returned %s", namespace, service, resp.Status)
	}

	var out serviceResolution
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decode resolution for %s/%s: %w", namespace, service, err)
	}
	if out.Addr == "" {
		return "", false, nil
	}
	return out.Addr, true, nil
}
