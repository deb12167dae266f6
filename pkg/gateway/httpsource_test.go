package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGatewaySource_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/ctfmanager.flagforge.dev/v1/sshgateways", r.URL.Path)
		_, _ = w.Write([]byte(`
- metadata:
    name: gw1
    namespace: challenge-pwn-me-instance-abc123
  spec:
    backendService: ssh-box
    backendPort: 22
`))
	}))
	defer srv.Close()

	source := NewHTTPGatewaySource(srv.URL, "", nil)
	out, err := source.List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "gw1", out[0].ObjectMeta.Name)
	assert.Equal(t, "ssh-box", out[0].Spec.BackendService)
}

func TestHTTPServiceResolver_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/namespaces/ns1/services/ssh-box/address", r.URL.Path)
		_, _ = w.Write([]byte(`{"addr":"10.0.0.5:22"}`))
	}))
	defer srv.Close()

	resolver := NewHTTPServiceResolver(srv.URL, "", nil)
	addr, ok, err := resolver.Resolve(context.Background(), "ns1", "ssh-box")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5:22", addr)
}

func TestHTTPServiceResolver_Resolve_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resolver := NewHTTPServiceResolver(srv.URL, "", nil)
	_, ok, err := resolver.Resolve(context.Background(), "ns1", "ssh-box")
	require.NoError(t, err)
	assert.False(t, ok)
}
