package gitsync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync_DirExistsWhenNonEmptyNonRepo(t *testing.T) {
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "stray.txt"), []byte("x"), 0o644))

	err := Sync(dest, "https://example.invalid/repo.git", "main")
	require.Error(t, err)

	var gitErr *Error
	require.ErrorAs(t, err, &gitErr)
	assert.Equal(t, DirExists, gitErr.Kind)
}

func TestHeadInfo_NotARepo(t *testing.T) {
	dir := t.TempDir()
	info, err := HeadInfo(dir)
	require.NoError(t, err)
	assert.Nil(t, info)
}
