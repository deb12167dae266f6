package instance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPNamespaceStore is the production NamespaceStore: it talks to the same
// cluster control plane HTTPApplier applies objects against, listing and
// mutating namespaces (and the pod phases within them) over HTTP/JSON
// instead of a typed client, matching this codebase's choice to keep the
// cluster boundary at a generic REST convention rather than client-go.
type HTTPNamespaceStore struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPNamespaceStore constructs an HTTPNamespaceStore. client defaults to
// an *http.Client with a 30s timeout if nil.
func NewHTTPNamespaceStore(baseURL, token string, client *http.Client) *HTTPNamespaceStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPNamespaceStore{BaseURL: baseURL, Token: token, Client: client}
}

// namespaceWire is the JSON wire shape for one namespace, as returned by the
// control plane's namespace listing endpoint.
type namespaceWire struct {
	Name              string            `json:"name"`
	Labels            map[string]string `json:"labels"`
	DeletionTimestamp *time.Time        `json:"deletionTimestamp,omitempty"`
	Terminating       bool              `json:"terminating"`
	PodPhases         []string          `json:"podPhases"`
}

// List returns every namespace whose labels are a superset of labels.
func (s *HTTPNamespaceStore) List(ctx context.Context, labels map[string]string) ([]Namespace, error) {
	q := url.Values{}
	for k, v := range labels {
		q.Add("label", k+"="+v)
	}
	endpoint := fmt.Sprintf("%s/api/v1/namespaces?%s", s.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}

	var wire []namespaceWire
	if err := s.doJSON(req, &wire); err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}

	out := make([]Namespace, 0, len(wire))
	for _, w := range wire {
		out = append(out, Namespace{
			Name:              w.Name,
			Labels:            w.Labels,
			DeletionTimestamp: w.DeletionTimestamp,
			Terminating:       w.Terminating,
			PodPhases:         w.PodPhases,
		})
	}
	return out, nil
}

// Create requests a new namespace named name, labelled with labels.
func (s *HTTPNamespaceStore) Create(ctx context.Context, name string, labels map[string]string) error {
	body, err := json.Marshal(namespaceWire{Name: name, Labels: labels})
	if err != nil {
		return fmt.Errorf("marshal namespace %s: %w", name, err)
	}
	endpoint := fmt.Sprintf("%s/api/v1/namespaces", s.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, fmt.Sprintf("create namespace %s", name))
}

// Delete requests deletion of the namespace named name.
func (s *HTTPNamespaceStore) Delete(ctx context.Context, name string) error {
	endpoint := fmt.Sprintf("%s/api/v1/namespaces/%s", s.BaseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	return s.do(req, fmt.Sprintf("delete namespace %s", name))
}

func (s *HTTPNamespaceStore) do(req *http.Request, action string) error {
	resp, err := s.send(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound && req.Method == http.MethodDelete {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: control plane returned %s", action, resp.Status)
	}
	return nil
}

func (s *HTTPNamespaceStore) doJSON(req *http.Request, out interface{}) error {
	resp, err := s.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("control plane returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *HTTPNamespaceStore) send(req *http.Request) (*http.Response, error) {
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	return s.Client.Do(req)
}
