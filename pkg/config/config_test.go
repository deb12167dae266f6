package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManager_RequiresGitURL(t *testing.T) {
	t.Setenv("GIT_URL", "")
	t.Setenv("GIT_BRANCH", "main")
	t.Setenv("CLUSTER_API_URL", "https://cluster.internal")
	_, err := LoadManager()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GIT_URL")
}

func TestLoadManager_RequiresGitBranch(t *testing.T) {
	t.Setenv("GIT_URL", "https://example.com/repo.git")
	t.Setenv("GIT_BRANCH", "")
	t.Setenv("CLUSTER_API_URL", "https://cluster.internal")
	_, err := LoadManager()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GIT_BRANCH")
}

func TestLoadManager_RequiresClusterAPIURL(t *testing.T) {
	t.Setenv("GIT_URL", "https://example.com/repo.git")
	t.Setenv("GIT_BRANCH", "main")
	t.Setenv("CLUSTER_API_URL", "")
	_, err := LoadManager()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLUSTER_API_URL")
}

func TestLoadManager_Defaults(t *testing.T) {
	t.Setenv("GIT_URL", "https://example.com/repo.git")
	t.Setenv("GIT_BRANCH", "main")
	t.Setenv("CLUSTER_API_URL", "https://cluster.internal")
	t.Setenv("REPO_DIR", "")
	t.Setenv("EXPOSED_DOMAIN", "")
	t.Setenv("INSECURE_FORCE_DISABLE_DNS_CHECKS", "")
	t.Setenv("SYNC_INTERVAL", "")

	cfg, err := LoadManager()
	require.NoError(t, err)
	assert.Equal(t, "/data/repo", cfg.RepoDir)
	assert.Equal(t, "localhost", cfg.ExposedDomain)
	assert.False(t, cfg.InsecureForceDisableDNSChecks)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr)
	assert.Equal(t, "127.0.0.1:9090", cfg.MetricsAddr)
}

func TestLoadManager_InsecureFlag(t *testing.T) {
	t.Setenv("GIT_URL", "https://example.com/repo.git")
	t.Setenv("GIT_BRANCH", "main")
	t.Setenv("CLUSTER_API_URL", "https://cluster.internal")
	t.Setenv("INSECURE_FORCE_DISABLE_DNS_CHECKS", "true")

	cfg, err := LoadManager()
	require.NoError(t, err)
	assert.True(t, cfg.InsecureForceDisableDNSChecks)
}

func TestLoadManager_InvalidSyncInterval(t *testing.T) {
	t.Setenv("GIT_URL", "https://example.com/repo.git")
	t.Setenv("GIT_BRANCH", "main")
	t.Setenv("CLUSTER_API_URL", "https://cluster.internal")
	t.Setenv("SYNC_INTERVAL", "not-a-duration")

	_, err := LoadManager()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_INTERVAL")
}

func TestLoadGateway_Default(t *testing.T) {
	t.Setenv("PRIVATE_KEY_FILE", "")
	t.Setenv("CLUSTER_API_URL", "https://cluster.internal")
	cfg, err := LoadGateway()
	require.NoError(t, err)
	assert.Equal(t, "/data/ssh_host_key", cfg.PrivateKeyFile)
	assert.Equal(t, "0.0.0.0:2222", cfg.ListenAddr)
}

func TestLoadGateway_RequiresClusterAPIURL(t *testing.T) {
	t.Setenv("CLUSTER_API_URL", "")
	_, err := LoadGateway()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLUSTER_API_URL")
}
