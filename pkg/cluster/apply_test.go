package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlan() *Plan {
	return &Plan{
		Namespace: "challenge-pwn-instance-abc123",
		Objects: []Object{
			&Deployment{ObjectMeta: ObjectMeta{Name: "chall", Namespace: "challenge-pwn-instance-abc123"}},
			&Service{ObjectMeta: ObjectMeta{Name: "chall", Namespace: "challenge-pwn-instance-abc123"}},
		},
	}
}

func TestApply_AppliesEveryObjectInOrder(t *testing.T) {
	fake := NewFake()
	plan := samplePlan()

	require.NoError(t, Apply(context.Background(), fake, plan))
	assert.Equal(t, 2, fake.Count())

	obj, ok := fake.Get(plan.Namespace, "Deployment", "chall")
	require.True(t, ok)
	assert.Equal(t, "Deployment", obj.Kind())
}

func TestTeardown_RemovesEveryObject(t *testing.T) {
	fake := NewFake()
	plan := samplePlan()
	require.NoError(t, Apply(context.Background(), fake, plan))

	require.NoError(t, Teardown(context.Background(), fake, plan))
	assert.Equal(t, 0, fake.Count())
}

func TestTeardown_ErrorsWhenObjectMissing(t *testing.T) {
	fake := NewFake()
	plan := samplePlan()

	err := Teardown(context.Background(), fake, plan)
	assert.Error(t, err)
}

func TestFake_ListNamespaceIsolatesByNamespace(t *testing.T) {
	fake := NewFake()
	require.NoError(t, fake.Apply(context.Background(), &Service{ObjectMeta: ObjectMeta{Name: "a", Namespace: "ns1"}}))
	require.NoError(t, fake.Apply(context.Background(), &Service{ObjectMeta: ObjectMeta{Name: "b", Namespace: "ns2"}}))

	assert.Len(t, fake.ListNamespace("ns1"), 1)
	assert.Len(t, fake.ListNamespace("ns2"), 1)
}
