package challenge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeChallenge(t *testing.T, repo, id, composeBody string) {
	t.Helper()
	dir := filepath.Join(repo, "challs", id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte(composeBody), 0o644))
}

const validCompose = `
services:
  web:
    image: nginx
x-ctf-metadata:
  name: Rot13
  authors: ["alice"]
  description_md: "rot13 me"
  flag: "flag{rot13}"
  difficulty: easy
`

func TestLoad_ParsesMetadataAndCompose(t *testing.T) {
	repo := t.TempDir()
	writeChallenge(t, repo, "rot13", validCompose)

	chall, err := Load(repo, "rot13", "alice", false)
	require.NoError(t, err)
	assert.Equal(t, "rot13", chall.ID)
	assert.Equal(t, "Rot13", chall.Metadata.Name)
	assert.Contains(t, chall.Compose.Services, "web")
	assert.Nil(t, chall.Export)
}

func TestLoad_MissingMetadataFails(t *testing.T) {
	repo := t.TempDir()
	writeChallenge(t, repo, "broken", "services:\n  web:\n    image: nginx\n")

	_, err := Load(repo, "broken", "alice", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MissingMetadata")
}

func TestLoad_WithExportProducesArchive(t *testing.T) {
	repo := t.TempDir()
	writeChallenge(t, repo, "rot13", validCompose)

	chall, err := Load(repo, "rot13", "alice", true)
	require.NoError(t, err)
	assert.NotEmpty(t, chall.Export)
}

func TestLoadAll_DropsBrokenChallengesButKeepsGoing(t *testing.T) {
	repo := t.TempDir()
	writeChallenge(t, repo, "rot13", validCompose)
	writeChallenge(t, repo, "broken", "services:\n  web:\n    image: nginx\n")

	all, err := LoadAll(repo, "alice", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "rot13", all[0].ID)
}
