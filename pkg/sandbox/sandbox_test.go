package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagValidator_Matches(t *testing.T) {
	sb := New()
	_, invoke := sb.RegisterFlagValidator()
	require.NoError(t, sb.Eval(`setFlagValidationFunction(function(s) { return s === "flag{ok}"; })`))

	ok, err := invoke("flag{ok}")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = invoke("flag{wrong}")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFlagValidator_UsesHmacHelper(t *testing.T) {
	sb := New()
	_, invoke := sb.RegisterFlagValidator()
	require.NoError(t, sb.Eval(`
		setFlagValidationFunction(function(s) {
			return crypto.hmacSha256Hex("k", s) === crypto.hmacSha256Hex("k", "flag{ok}");
		});
	`))

	ok, err := invoke("flag{ok}")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFlagValidator_ThrowIsScriptError(t *testing.T) {
	sb := New()
	_, invoke := sb.RegisterFlagValidator()
	require.NoError(t, sb.Eval(`setFlagValidationFunction(function(s) { throw new Error("boom"); })`))

	_, err := invoke("anything")
	require.Error(t, err)
	var se *ScriptError
	assert.ErrorAs(t, err, &se)
}

func TestFlagValidator_NotSetIsScriptError(t *testing.T) {
	sb := New()
	_, invoke := sb.RegisterFlagValidator()

	_, err := invoke("anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not set")
}

func TestFlagValidator_NonBooleanReturnIsScriptError(t *testing.T) {
	sb := New()
	_, invoke := sb.RegisterFlagValidator()
	require.NoError(t, sb.Eval(`setFlagValidationFunction(function(s) { return "yes"; })`))

	_, err := invoke("anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boolean")
}

func TestPointsFn_Computes(t *testing.T) {
	sb := New()
	invoke := sb.RegisterPointsFn()
	require.NoError(t, sb.Eval(`setPointsFn(function(solves) { return solves < 5 ? 500 : 100; })`))

	points, err := invoke(int64(2))
	require.NoError(t, err)
	assert.Equal(t, 500, points)

	points, err = invoke(int64(10))
	require.NoError(t, err)
	assert.Equal(t, 100, points)
}

func TestImportsAreRejected(t *testing.T) {
	sb := New()
	err := sb.Eval(`require("fs")`)
	require.Error(t, err)
	var se *ScriptError
	assert.ErrorAs(t, err, &se)
}

func TestFreshRuntimePerSandbox(t *testing.T) {
	a := New()
	require.NoError(t, a.Eval(`globalThis.leaked = 42;`))

	b := New()
	v, err := b.run(`typeof leaked`)
	require.NoError(t, err)
	assert.Equal(t, "undefined", v.String())
}
