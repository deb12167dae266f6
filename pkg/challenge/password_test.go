package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePassword_StableForSameInputs(t *testing.T) {
	p1 := DerivePassword([]byte("secret"), nil, "alice", "inst-1", "ssh")
	p2 := DerivePassword([]byte("secret"), nil, "alice", "inst-1", "ssh")
	assert.Equal(t, p1, p2)
	assert.Len(t, p1, 16)
}

func TestDerivePassword_DiffersByPurpose(t *testing.T) {
	p1 := DerivePassword([]byte("secret"), nil, "alice", "inst-1", "ssh")
	p2 := DerivePassword([]byte("secret"), nil, "alice", "inst-1", "http")
	assert.NotEqual(t, p1, p2)
}

func TestDerivePassword_FallsBackWhenNoSecret(t *testing.T) {
	p1 := DerivePassword(nil, []byte("flag-body"), "alice", "inst-1", "ssh")
	p2 := DerivePassword(nil, []byte("flag-body"), "alice", "inst-1", "ssh")
	assert.Equal(t, p1, p2)
}
