package gateway

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrGenerateHostKey_GeneratesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host_key")

	signer1, err := LoadOrGenerateHostKey(path)
	require.NoError(t, err)
	require.NotNil(t, signer1)

	signer2, err := LoadOrGenerateHostKey(path)
	require.NoError(t, err)
	assert.Equal(t, signer1.PublicKey().Marshal(), signer2.PublicKey().Marshal())
}
