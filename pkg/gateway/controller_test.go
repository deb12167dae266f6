package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/ctfmanager/pkg/cluster"
)

type fakeGatewaySource struct {
	gateways []cluster.SSHGateway
}

func (f *fakeGatewaySource) List(context.Context) ([]cluster.SSHGateway, error) {
	return f.gateways, nil
}

type fakeResolver struct {
	addrs map[string]string // key: namespace/service
}

func (f *fakeResolver) Resolve(_ context.Context, namespace, service string) (string, bool, error) {
	addr, ok := f.addrs[namespace+"/"+service]
	return addr, ok, nil
}

func sampleGateway() cluster.SSHGateway {
	return cluster.SSHGateway{
		ObjectMeta: cluster.ObjectMeta{Name: "box-22", Namespace: "challenge-pwn-instance-abc"},
		Spec: cluster.SSHGatewaySpec{
			BackendService:  "box-proxied",
			BackendUsername: "ctf",
			BackendPassword: "pw",
			GatewayPassword: "gw",
		},
	}
}

func TestReconcile_RegistersResolvableBackend(t *testing.T) {
	gw := sampleGateway()
	source := &fakeGatewaySource{gateways: []cluster.SSHGateway{gw}}
	resolver := &fakeResolver{addrs: map[string]string{"challenge-pwn-instance-abc/box-proxied": "10.0.0.5:22"}}
	registry := NewBackendRegistry()

	c := NewController(source, resolver, registry, 0)
	c.Reconcile(context.Background())

	key := RegistryKey("box-proxied", "challenge-pwn-instance-abc")
	b, ok := registry.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5:22", b.Addr)
	assert.Equal(t, "gw", b.GatewayPassword)
}

func TestReconcile_LeavesUnresolvedBackendForNextPass(t *testing.T) {
	gw := sampleGateway()
	source := &fakeGatewaySource{gateways: []cluster.SSHGateway{gw}}
	resolver := &fakeResolver{addrs: map[string]string{}}
	registry := NewBackendRegistry()

	c := NewController(source, resolver, registry, 0)
	c.Reconcile(context.Background())

	assert.Equal(t, 0, registry.Len())
}

func TestReconcile_UnregistersDisappearedGateway(t *testing.T) {
	gw := sampleGateway()
	source := &fakeGatewaySource{gateways: []cluster.SSHGateway{gw}}
	resolver := &fakeResolver{addrs: map[string]string{"challenge-pwn-instance-abc/box-proxied": "10.0.0.5:22"}}
	registry := NewBackendRegistry()

	c := NewController(source, resolver, registry, 0)
	c.Reconcile(context.Background())
	require.Equal(t, 1, registry.Len())

	source.gateways = nil
	c.Reconcile(context.Background())
	assert.Equal(t, 0, registry.Len())
}
