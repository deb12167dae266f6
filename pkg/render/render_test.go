package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestTree_RendersTemplateAndStripsSuffix(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "docker-compose.yml.tpl"), "actor={{.Actor}} export={{.IsExport}}")

	require.NoError(t, Tree(src, dst, Context{Actor: "team-alpha", IsExport: true}))

	out, err := os.ReadFile(filepath.Join(dst, "docker-compose.yml"))
	require.NoError(t, err)
	assert.Equal(t, "actor=team-alpha export=true", string(out))
}

func TestTree_CopiesNonTemplateFilesVerbatim(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "attachment.bin"), "\x00\x01binary")

	require.NoError(t, Tree(src, dst, Context{Actor: "a"}))

	out, err := os.ReadFile(filepath.Join(dst, "attachment.bin"))
	require.NoError(t, err)
	assert.Equal(t, "\x00\x01binary", string(out))
}

func TestTree_LoadsHelpersBeforeRendering(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, HelperDir, "greet.js"), `function greet(name) { return "hi " + name; }`)
	writeFile(t, filepath.Join(src, "flag.txt.tpl"), `{{ js "greet(\"alice\")" }}`)

	require.NoError(t, Tree(src, dst, Context{Actor: "alice"}))

	out, err := os.ReadFile(filepath.Join(dst, "flag.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi alice", string(out))
}

func TestTree_SkipsHelperDirInOutput(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, HelperDir, "x.js"), `1`)
	writeFile(t, filepath.Join(src, "a.txt"), "hello")

	require.NoError(t, Tree(src, dst, Context{}))

	_, err := os.Stat(filepath.Join(dst, HelperDir))
	assert.True(t, os.IsNotExist(err))
}

func TestTree_RejectsSymlinkEscape(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.txt"), "nope")

	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(src, "link.txt")))

	err := Tree(src, dst, Context{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PathEscape")
}
