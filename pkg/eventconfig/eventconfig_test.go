package eventconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ParsesMinimalConfig(t *testing.T) {
	repo := t.TempDir()
	body := `
name: Sample CTF
start_time: 1700000000
end_time: 1700100000
teams_enabled: false
categories:
  web:
    name: Web
    description: Web exploitation
    color: "#336699"
`
	require.NoError(t, os.WriteFile(filepath.Join(repo, "event.yml"), []byte(body), 0o644))

	cfg, err := Load(repo)
	require.NoError(t, err)
	assert.Equal(t, "Sample CTF", cfg.Name)
	assert.Empty(t, cfg.PointsFn)
	assert.Contains(t, cfg.Categories, "web")
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}
