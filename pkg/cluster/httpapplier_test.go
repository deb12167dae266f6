package cluster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestHTTPApplier_Apply(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotContentType string
	var gotBody Deployment

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, yaml.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	applier := NewHTTPApplier(srv.URL, "tok123", nil)
	dep := &Deployment{
		ObjectMeta: ObjectMeta{Namespace: "ns1", Name: "web"},
		Spec:       DeploymentSpec{Replicas: 2},
	}

	err := applier.Apply(context.Background(), dep)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/apis/ctfmanager.flagforge.dev/v1/namespaces/ns1/Deployment/web", gotPath)
	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "application/yaml", gotContentType)
	assert.Equal(t, int32(2), gotBody.Spec.Replicas)
}

func TestHTTPApplier_Apply_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	applier := NewHTTPApplier(srv.URL, "", nil)
	err := applier.Apply(context.Background(), &Deployment{ObjectMeta: ObjectMeta{Namespace: "ns1", Name: "web"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestHTTPApplier_Delete_NotFoundIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	applier := NewHTTPApplier(srv.URL, "", nil)
	err := applier.Delete(context.Background(), "ns1", "Deployment", "web")
	assert.NoError(t, err)
}

func TestHTTPApplier_Delete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/ctfmanager.flagforge.dev/v1/namespaces/ns1/Service/web", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	applier := NewHTTPApplier(srv.URL, "", nil)
	err := applier.Delete(context.Background(), "ns1", "Service", "web")
	assert.NoError(t, err)
}
