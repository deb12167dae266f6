// Package netpolicy synthesizes the Cilium-shaped network policies every
// challenge instance gets, plus per-entity overrides from the
// x-ctf-network-policy compose extension, per spec.md §4.F "Network
// policies".
package netpolicy

import (
	"fmt"
	"sort"

	"github.com/flagforge/ctfmanager/pkg/cluster"
	"github.com/flagforge/ctfmanager/pkg/compose"
)

const (
	entityWorld   = "world"
	entityCluster = "cluster"
	entityDNS     = "kube-dns"
)

// Options carries the flags that gate the DNS egress rule's optional name
// inspection.
type Options struct {
	InsecureForceDisableDNSChecks bool
}

// Base returns the always-present policy every instance namespace gets,
// selecting every pod in the namespace: ingress from cluster peers and the
// outside world, egress to cluster peers, the outside world, and cluster
// DNS.
func Base(namespace string, opts Options) *cluster.CiliumNetworkPolicy {
	dnsRule := cluster.CiliumIngressEgressRule{
		ToEntities: []string{entityDNS},
		ToPorts: []cluster.CiliumPortsRule{
			{Ports: []cluster.CiliumPort{
				{Port: "53", Protocol: "UDP"},
				{Port: "53", Protocol: "TCP"},
			}},
		},
	}
	if !opts.InsecureForceDisableDNSChecks {
		dnsRule.ToPorts[0].Rules = &cluster.CiliumDNSRules{
			DNS: []cluster.CiliumDNSMatch{{MatchPattern: "*"}},
		}
	}

	return &cluster.CiliumNetworkPolicy{
		ObjectMeta: cluster.ObjectMeta{Name: "base", Namespace: namespace},
		Spec: cluster.CiliumNetworkPolicySpec{
			EndpointSelector: cluster.Selector{},
			Ingress: []cluster.CiliumIngressEgressRule{
				{FromEntities: []string{entityCluster}},
				{FromEntities: []string{entityWorld}},
			},
			Egress: []cluster.CiliumIngressEgressRule{
				{ToEntities: []string{entityCluster}},
				{ToEntities: []string{entityWorld}},
				dnsRule,
			},
		},
	}
}

// Overrides returns one CiliumNetworkPolicy per entity (service or VM) that
// declares an x-ctf-network-policy extension, additive to Base.
func Overrides(namespace string, services map[string]compose.Service, vmPolicies map[string]*compose.NetworkPolicy) ([]*cluster.CiliumNetworkPolicy, error) {
	var policies []*cluster.CiliumNetworkPolicy

	for _, id := range sortedKeys(services) {
		svc := services[id]
		if svc.NetworkPolicy == nil {
			continue
		}
		p, err := overrideFor(namespace, id, svc.NetworkPolicy)
		if err != nil {
			return nil, fmt.Errorf("service %q network policy: %w", id, err)
		}
		policies = append(policies, p)
	}

	for _, id := range sortedVMKeys(vmPolicies) {
		np := vmPolicies[id]
		if np == nil {
			continue
		}
		p, err := overrideFor(namespace, id, np)
		if err != nil {
			return nil, fmt.Errorf("vm %q network policy: %w", id, err)
		}
		policies = append(policies, p)
	}

	return policies, nil
}

func overrideFor(namespace, entityID string, np *compose.NetworkPolicy) (*cluster.CiliumNetworkPolicy, error) {
	spec := cluster.CiliumNetworkPolicySpec{
		EndpointSelector: cluster.Selector{MatchLabels: map[string]string{"component": entityID}},
	}

	if np.Incoming != nil {
		for _, rule := range np.Incoming.Rules {
			r, err := translateRule(rule, true)
			if err != nil {
				return nil, err
			}
			spec.Ingress = append(spec.Ingress, r)
		}
	}
	if np.Outgoing != nil {
		for _, rule := range np.Outgoing.Rules {
			r, err := translateRule(rule, false)
			if err != nil {
				return nil, err
			}
			spec.Egress = append(spec.Egress, r)
		}
	}

	return &cluster.CiliumNetworkPolicy{
		ObjectMeta: cluster.ObjectMeta{Name: entityID + "-override", Namespace: namespace},
		Spec:       spec,
	}, nil
}

func translateRule(rule compose.PolicyRule, incoming bool) (cluster.CiliumIngressEgressRule, error) {
	var r cluster.CiliumIngressEgressRule

	switch rule.OtherParty {
	case compose.PartyChallenge:
		sel := []cluster.Selector{{}} // same namespace, any component
		if incoming {
			r.FromEndpoints = sel
		} else {
			r.ToEndpoints = sel
		}
	case compose.PartyCluster:
		if incoming {
			r.FromEntities = []string{entityCluster}
		} else {
			r.ToEntities = []string{entityCluster}
		}
	case compose.PartyClusterDNS:
		if incoming {
			r.FromEntities = []string{entityDNS}
		} else {
			r.ToEntities = []string{entityDNS}
		}
	case compose.PartyWorld:
		if incoming {
			r.FromEntities = []string{entityWorld}
		} else {
			r.ToEntities = []string{entityWorld}
		}
	default:
		return r, fmt.Errorf("unknown network policy party %q", rule.OtherParty)
	}

	if len(rule.Ports) > 0 {
		var ports []cluster.CiliumPort
		for _, p := range rule.Ports {
			for _, proto := range p.Protocols {
				ports = append(ports, cluster.CiliumPort{Port: fmt.Sprintf("%d", p.Port), Protocol: proto})
			}
		}
		r.ToPorts = []cluster.CiliumPortsRule{{Ports: ports}}
	}

	return r, nil
}

func sortedKeys(m map[string]compose.Service) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedVMKeys(m map[string]*compose.NetworkPolicy) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
