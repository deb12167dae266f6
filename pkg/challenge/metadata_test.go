package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFlag_Literal(t *testing.T) {
	flag := "flag{ok}"
	m := &Metadata{Flag: &flag}

	ok, err := m.CheckFlag("flag{ok}")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.CheckFlag("flag{nope}")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckFlag_Script(t *testing.T) {
	script := `setFlagValidationFunction(function(f) { return f.length === 9; })`
	m := &Metadata{FlagValidationFn: &script}

	ok, err := m.CheckFlag("flag{123}")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckFlag_NoMethodFails(t *testing.T) {
	m := &Metadata{}
	_, err := m.CheckFlag("anything")
	require.Error(t, err)
}

func TestSecretMaterial_PrefersScriptOverFlag(t *testing.T) {
	flag := "flag{ok}"
	script := "script-body"
	m := &Metadata{Flag: &flag, FlagValidationFn: &script}
	assert.Equal(t, []byte(script), m.SecretMaterial())
}
