package cluster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

// HTTPApplier is the production Applier: it talks to the cluster control
// plane's generic apply-by-kind endpoint over HTTP, the same resource-YAML
// shape cmd/warren/apply.go dispatches on, rather than a typed client like
// k8s.io/client-go, per this package's own design notes.
type HTTPApplier struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPApplier constructs an HTTPApplier. client defaults to an
// *http.Client with a 30s timeout if nil.
func NewHTTPApplier(baseURL, token string, client *http.Client) *HTTPApplier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPApplier{BaseURL: baseURL, Token: token, Client: client}
}

func (a *HTTPApplier) endpoint(namespace, kind, name string) string {
	return fmt.Sprintf("%s/apis/ctfmanager.flagforge.dev/v1/namespaces/%s/%s/%s",
		a.BaseURL, url.PathEscape(namespace), url.PathEscape(kind), url.PathEscape(name))
}

// Apply PUTs obj's YAML encoding to its namespace/kind/name endpoint. The
// control plane is expected to upsert: create the object if absent, replace
// it if present.
func (a *HTTPApplier) Apply(ctx context.Context, obj Object) error {
	body, err := yaml.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", obj.Kind(), err)
	}
	meta := obj.Meta()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		a.endpoint(meta.Namespace, obj.Kind(), meta.Name), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build apply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/yaml")
	return a.do(req, fmt.Sprintf("apply %s/%s", obj.Kind(), meta.Name))
}

// Delete issues a DELETE against namespace/kind/name. A 404 response is
// treated as success: the object is already gone.
func (a *HTTPApplier) Delete(ctx context.Context, namespace, kind, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		a.endpoint(namespace, kind, name), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	return a.do(req, fmt.Sprintf("delete %s/%s", kind, name))
}

func (a *HTTPApplier) do(req *http.Request, action string) error {
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && req.Method == http.MethodDelete {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: control plane returned %s: %s", action, resp.Status, detail)
	}
	return nil
}
