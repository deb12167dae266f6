package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoints_NoScriptReturnsFlat100(t *testing.T) {
	p, err := Points("", &Metadata{}, 5, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 100, p)
}

func TestPoints_ScriptComputesDynamicScore(t *testing.T) {
	script := `setPointsFn(function(meta, totalSolves, nthSolve, totalCompetitors) {
		return totalSolves < 3 ? 500 : 100;
	})`
	p, err := Points(script, &Metadata{Name: "x"}, 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 500, p)

	p, err = Points(script, &Metadata{Name: "x"}, 10, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 100, p)
}
