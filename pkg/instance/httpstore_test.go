package instance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPNamespaceStore_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "challenge-id=pwn-me", r.URL.Query().Get("label"))
		_ = json.NewEncoder(w).Encode([]namespaceWire{
			{Name: "challenge-pwn-me-instance-abc123", Terminating: false, PodPhases: []string{"Running"}},
		})
	}))
	defer srv.Close()

	store := NewHTTPNamespaceStore(srv.URL, "", nil)
	out, err := store.List(context.Background(), map[string]string{"challenge-id": "pwn-me"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "challenge-pwn-me-instance-abc123", out[0].Name)
	assert.Equal(t, StateRunning, out[0].state())
}

func TestHTTPNamespaceStore_Create(t *testing.T) {
	var gotBody namespaceWire
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store := NewHTTPNamespaceStore(srv.URL, "secret", nil)
	err := store.Create(context.Background(), "challenge-pwn-me-instance-abc123", map[string]string{"actor": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "challenge-pwn-me-instance-abc123", gotBody.Name)
	assert.Equal(t, "alice", gotBody.Labels["actor"])
}

func TestHTTPNamespaceStore_Delete_NotFoundIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := NewHTTPNamespaceStore(srv.URL, "", nil)
	err := store.Delete(context.Background(), "gone-already")
	assert.NoError(t, err)
}

func TestHTTPNamespaceStore_Delete_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewHTTPNamespaceStore(srv.URL, "", nil)
	err := store.Delete(context.Background(), "ns")
	require.Error(t, err)
}
