package challenge

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafePack_ClearsFlagFieldsOnly(t *testing.T) {
	scratch := t.TempDir()
	compose := `
services:
  web:
    image: nginx
x-ctf-metadata:
  name: Sample
  authors: ["alice"]
  flag: flag{secret}
  flag_validation_fn: "setFlagValidationFunction(f => true)"
  difficulty: easy
`
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "docker-compose.yml"), []byte(compose), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(scratch, "_helpers"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "_helpers", "x.js"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "attachment.txt"), []byte("data"), 0o644))

	archive, err := SafePack(scratch)
	require.NoError(t, err)

	files := readTar(t, archive)
	assert.Contains(t, files, "docker-compose.yml")
	assert.Contains(t, files, "attachment.txt")
	assert.NotContains(t, files, "_helpers/x.js")

	composed := files["docker-compose.yml"]
	assert.NotContains(t, composed, "flag{secret}")
	assert.NotContains(t, composed, "flag_validation_fn")
	assert.Contains(t, composed, "alice")
}

func TestSafePack_DeterministicOwnership(t *testing.T) {
	scratch := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "docker-compose.yml"), []byte("services: {}\n"), 0o644))

	archive, err := SafePack(scratch)
	require.NoError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(archive))
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	hdr, err := tr.Next()
	require.NoError(t, err)
	assert.EqualValues(t, 1000, hdr.Uid)
	assert.EqualValues(t, 1000, hdr.Gid)
	assert.EqualValues(t, 0o644, hdr.Mode)
}

func readTar(t *testing.T, archive []byte) map[string]string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	out := make(map[string]string)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		out[hdr.Name] = string(body)
	}
	return out
}
