package netpolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/ctfmanager/pkg/compose"
)

func TestBase_AllowsClusterAndWorldBothWays(t *testing.T) {
	p := Base("challenge-pwn-instance-abc", Options{})

	assert.Len(t, p.Spec.Ingress, 2)
	assert.Len(t, p.Spec.Egress, 3)
	assert.Equal(t, []string{"world"}, p.Spec.Ingress[1].FromEntities)
}

func TestBase_DNSRuleInspectsNamesByDefault(t *testing.T) {
	p := Base("ns", Options{})
	dnsRule := p.Spec.Egress[2]
	require.NotEmpty(t, dnsRule.ToPorts)
	assert.NotNil(t, dnsRule.ToPorts[0].Rules)
}

func TestBase_DNSInspectionDisabledByFlag(t *testing.T) {
	p := Base("ns", Options{InsecureForceDisableDNSChecks: true})
	dnsRule := p.Spec.Egress[2]
	assert.Nil(t, dnsRule.ToPorts[0].Rules)
}

func TestOverrides_TranslatesEachPartyKind(t *testing.T) {
	services := map[string]compose.Service{
		"web": {
			NetworkPolicy: &compose.NetworkPolicy{
				Incoming: &compose.PolicyDirection{Rules: []compose.PolicyRule{
					{OtherParty: compose.PartyWorld, Ports: []compose.PolicyPort{{Port: 443, Protocols: []string{"TCP"}}}},
				}},
				Outgoing: &compose.PolicyDirection{Rules: []compose.PolicyRule{
					{OtherParty: compose.PartyClusterDNS},
					{OtherParty: compose.PartyChallenge},
				}},
			},
		},
	}

	policies, err := Overrides("ns", services, nil)
	require.NoError(t, err)
	require.Len(t, policies, 1)

	p := policies[0]
	assert.Equal(t, "web-override", p.ObjectMeta.Name)
	require.Len(t, p.Spec.Ingress, 1)
	assert.Equal(t, []string{"world"}, p.Spec.Ingress[0].FromEntities)
	require.Len(t, p.Spec.Ingress[0].ToPorts, 1)
	assert.Equal(t, "443", p.Spec.Ingress[0].ToPorts[0].Ports[0].Port)

	require.Len(t, p.Spec.Egress, 2)
	assert.Equal(t, []string{"kube-dns"}, p.Spec.Egress[0].ToEntities)
	assert.Len(t, p.Spec.Egress[1].ToEndpoints, 1)
}

func TestOverrides_SkipsServicesWithoutPolicy(t *testing.T) {
	services := map[string]compose.Service{"web": {}}
	policies, err := Overrides("ns", services, nil)
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestOverrides_RejectsUnknownParty(t *testing.T) {
	services := map[string]compose.Service{
		"web": {NetworkPolicy: &compose.NetworkPolicy{
			Incoming: &compose.PolicyDirection{Rules: []compose.PolicyRule{{OtherParty: "Bogus"}}},
		}},
	}
	_, err := Overrides("ns", services, nil)
	assert.Error(t, err)
}
