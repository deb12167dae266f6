// Package config centralizes the environment-variable configuration read by
// the two ctfmanager binaries, per spec.md §6.
package config

import (
	"fmt"
	"os"
	"time"
)

// Manager holds the configuration for cmd/manager.
type Manager struct {
	RepoDir                       string
	GitURL                        string
	GitBranch                     string
	ExposedDomain                 string
	HMACSecretKey                 string
	InsecureForceDisableDNSChecks bool
	ClusterAPIURL                 string
	ClusterAPIToken               string
	ListenAddr                    string
	MetricsAddr                   string
	SyncInterval                  time.Duration
}

// LoadManager reads and validates the manager's environment variables.
// GIT_URL, GIT_BRANCH, and CLUSTER_API_URL are required; everything else has
// a default. CLUSTER_API_URL isn't named in spec.md's env var list — that
// list assumes cluster credentials arrive out of band (an in-cluster
// kubeconfig, say); since this build reaches the cluster over its own
// generic apply-by-kind HTTP convention instead, it needs the control
// plane's base URL spelled out explicitly.
func LoadManager() (*Manager, error) {
	gitURL, ok := os.LookupEnv("GIT_URL")
	if !ok || gitURL == "" {
		return nil, fmt.Errorf("GIT_URL is required")
	}
	gitBranch, ok := os.LookupEnv("GIT_BRANCH")
	if !ok || gitBranch == "" {
		return nil, fmt.Errorf("GIT_BRANCH is required")
	}
	clusterAPIURL, ok := os.LookupEnv("CLUSTER_API_URL")
	if !ok || clusterAPIURL == "" {
		return nil, fmt.Errorf("CLUSTER_API_URL is required")
	}

	syncInterval, err := envDuration("SYNC_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Manager{
		RepoDir:                       envOr("REPO_DIR", "/data/repo"),
		GitURL:                        gitURL,
		GitBranch:                     gitBranch,
		ExposedDomain:                 envOr("EXPOSED_DOMAIN", "localhost"),
		HMACSecretKey:                 os.Getenv("HMAC_SECRET_KEY"),
		InsecureForceDisableDNSChecks: envBool("INSECURE_FORCE_DISABLE_DNS_CHECKS"),
		ClusterAPIURL:                 clusterAPIURL,
		ClusterAPIToken:               os.Getenv("CLUSTER_API_TOKEN"),
		ListenAddr:                    envOr("LISTEN_ADDR", "0.0.0.0:8080"),
		MetricsAddr:                   envOr("METRICS_ADDR", "127.0.0.1:9090"),
		SyncInterval:                  syncInterval,
	}
	return cfg, nil
}

// Gateway holds the configuration for cmd/gateway.
type Gateway struct {
	PrivateKeyFile  string
	ClusterAPIURL   string
	ClusterAPIToken string
	ListenAddr      string
	MetricsAddr     string
}

// LoadGateway reads the SSH gateway's environment variables. CLUSTER_API_URL
// is required for the same reason as the manager's: the gateway's
// controller lists SSHGateway resources from the same control plane.
func LoadGateway() (*Gateway, error) {
	clusterAPIURL, ok := os.LookupEnv("CLUSTER_API_URL")
	if !ok || clusterAPIURL == "" {
		return nil, fmt.Errorf("CLUSTER_API_URL is required")
	}
	return &Gateway{
		PrivateKeyFile:  envOr("PRIVATE_KEY_FILE", "/data/ssh_host_key"),
		ClusterAPIURL:   clusterAPIURL,
		ClusterAPIToken: os.Getenv("CLUSTER_API_TOKEN"),
		ListenAddr:      envOr("LISTEN_ADDR", "0.0.0.0:2222"),
		MetricsAddr:     envOr("METRICS_ADDR", "127.0.0.1:9091"),
	}, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func envBool(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes":
		return true
	default:
		return false
	}
}
