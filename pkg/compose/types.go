// Package compose translates an author-supplied docker-compose document into
// a set of cluster objects, per spec.md §4.F. Parsing honors the subset of
// the compose spec spec.md names; fields outside that subset are rejected
// with PropertyNotSupported rather than silently ignored.
package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is a parsed docker-compose.yml, restricted to the fields
// spec.md's translator understands.
type Document struct {
	Services map[string]Service `yaml:"services"`
	Volumes  map[string]Volume  `yaml:"volumes"`
	VMs      map[string]VM      `yaml:"x-ctf-vms"`

	// XCTFMetadata is re-parsed into challenge.Metadata by pkg/challenge;
	// kept as a raw map here to avoid an import cycle.
	XCTFMetadata map[string]any `yaml:"x-ctf-metadata"`
}

// Service is a single compose service entry.
type Service struct {
	Image           string            `yaml:"image"`
	Command         StringOrList      `yaml:"command"`
	Entrypoint      StringOrList      `yaml:"entrypoint"`
	Environment     MapOrList         `yaml:"environment"`
	EnvFile         StringOrList      `yaml:"env_file"`
	Ports           []Port            `yaml:"ports"`
	Expose          []string          `yaml:"expose"`
	Volumes         []VolumeMount     `yaml:"volumes"`
	Deploy          *Deploy           `yaml:"deploy"`
	Scale           *int              `yaml:"scale"`
	Privileged      bool              `yaml:"privileged"`
	CapAdd          []string          `yaml:"cap_add"`
	CapDrop         []string          `yaml:"cap_drop"`
	Runtime         string            `yaml:"runtime"`
	Hostname        string            `yaml:"hostname"`
	Subdomain       string            `yaml:"subdomain"`
	ExtraHosts      []string          `yaml:"extra_hosts"`
	DNS             StringOrList      `yaml:"dns"`
	DNSOpt          []string          `yaml:"dns_opt"`
	DNSSearch       StringOrList      `yaml:"dns_search"`
	StopGracePeriod string            `yaml:"stop_grace_period"`
	GroupAdd        []string          `yaml:"group_add"`
	User            string            `yaml:"user"`
	ReadOnly        bool              `yaml:"read_only"`
	MemReservation  string            `yaml:"mem_reservation"`
	MemLimit        string            `yaml:"mem_limit"`
	CPUs            string            `yaml:"cpus"`
	CPUCount        *int              `yaml:"cpu_count"`
	Init            bool              `yaml:"init"`
	Tmpfs           StringOrList      `yaml:"tmpfs"`
	ShmSize         string            `yaml:"shm_size"`
	Labels          map[string]string `yaml:"labels"`
	NetworkPolicy   *NetworkPolicy    `yaml:"x-ctf-network-policy"`

	// Rejection-matrix fields: present only so RejectedFields() can detect them.
	Build          *yaml.Node `yaml:"build"`
	Pid            *yaml.Node `yaml:"pid"`
	NetworkConfig  *yaml.Node `yaml:"network_config"`
	MacAddress     *yaml.Node `yaml:"mac_address"`
	Platform       *yaml.Node `yaml:"platform"`
	SecurityOpt    *yaml.Node `yaml:"security_opt"`
	Profiles       *yaml.Node `yaml:"profiles"`
	Sysctls        *yaml.Node `yaml:"sysctls"`
	Ulimits        *yaml.Node `yaml:"ulimits"`
	StorageOpt     *yaml.Node `yaml:"storage_opt"`
	MemSwappiness  *yaml.Node `yaml:"mem_swappiness"`
	MemswapLimit   *yaml.Node `yaml:"memswap_limit"`
	PidsLimit      *yaml.Node `yaml:"pids_limit"`
	OomKillDisable *yaml.Node `yaml:"oom_kill_disable"`
	OomScoreAdj    *yaml.Node `yaml:"oom_score_adj"`
}

// RejectedFields returns the names of every present rejection-matrix field.
func (s Service) RejectedFields() []string {
	var names []string
	check := func(name string, n *yaml.Node) {
		if n != nil {
			names = append(names, name)
		}
	}
	check("build", s.Build)
	check("pid", s.Pid)
	check("network_config", s.NetworkConfig)
	check("mac_address", s.MacAddress)
	check("platform", s.Platform)
	check("security_opt", s.SecurityOpt)
	check("profiles", s.Profiles)
	check("sysctls", s.Sysctls)
	check("ulimits", s.Ulimits)
	check("storage_opt", s.StorageOpt)
	check("mem_swappiness", s.MemSwappiness)
	check("memswap_limit", s.MemswapLimit)
	check("pids_limit", s.PidsLimit)
	check("oom_kill_disable", s.OomKillDisable)
	check("oom_score_adj", s.OomScoreAdj)
	return names
}

// Deploy is the subset of the compose `deploy:` block the translator reads.
type Deploy struct {
	Labels    map[string]string `yaml:"labels"`
	Replicas  *int              `yaml:"replicas"`
	Resources *Resources        `yaml:"resources"`
}

// Resources is unused directly by the translator (mem/cpu come from the
// top-level service fields per spec.md) but kept for round-tripping export.
type Resources struct {
	Limits       map[string]string `yaml:"limits"`
	Reservations map[string]string `yaml:"reservations"`
}

// Port is one compose `ports:` long-syntax entry, extended with the CTF
// extensions x-username/x-password used for SSH gateway emission.
type Port struct {
	Target      int    `yaml:"target"`
	Published   string `yaml:"published"`
	Protocol    string `yaml:"protocol"`
	AppProtocol string `yaml:"app_protocol"`
	HostIP      string `yaml:"host_ip"`
	XUsername   string `yaml:"x-username"`
	XPassword   string `yaml:"x-password"`
}

// VolumeMount is one compose `volumes:` long-syntax entry.
type VolumeMount struct {
	Type     string `yaml:"type"` // volume|bind|tmpfs|npipe|cluster
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	ReadOnly bool   `yaml:"read_only"`
}

// Volume is a top-level compose volume definition.
type Volume struct {
	XSize    string `yaml:"x-size"`
	External bool   `yaml:"external"`
}

// VM is the x-ctf-vms extension: a declarative VM the translator maps to a
// cluster VM kind, per spec.md §4.F "VMs".
type VM struct {
	CPUCores int               `yaml:"cpu_cores"`
	MemoryMi int               `yaml:"memory_mi"`
	Disks    []VMDisk          `yaml:"disks"`
	Ports    []Port            `yaml:"ports"`
	Labels   map[string]string `yaml:"labels"`
}

// VMDisk is one entry of a VM's disk list.
type VMDisk struct {
	Kind      string `yaml:"kind"` // ContainerDisk|CloudInit|PVC
	Image     string `yaml:"image,omitempty"`
	CloudInit string `yaml:"cloud_init,omitempty"`
	ClaimName string `yaml:"claim_name,omitempty"`
}

// NetworkPolicy is the x-ctf-network-policy extension schema from spec.md
// §4.F "Network policies".
type NetworkPolicy struct {
	Incoming *PolicyDirection `yaml:"incoming"`
	Outgoing *PolicyDirection `yaml:"outgoing"`
}

// PolicyDirection is one direction (incoming/outgoing) of a NetworkPolicy.
type PolicyDirection struct {
	Rules []PolicyRule `yaml:"rules"`
}

// PolicyRule is one entry of a PolicyDirection's rule list.
type PolicyRule struct {
	OtherParty OtherParty   `yaml:"other_party"`
	Ports      []PolicyPort `yaml:"ports,omitempty"`
}

// PolicyPort restricts a PolicyRule to specific ports and protocols.
type PolicyPort struct {
	Port      int      `yaml:"port"`
	Protocols []string `yaml:"protocols"`
}

// OtherParty enumerates the network-policy peer classes from spec.md §4.F.
type OtherParty string

const (
	PartyChallenge  OtherParty = "Challenge"
	PartyCluster    OtherParty = "Cluster"
	PartyClusterDNS OtherParty = "ClusterDns"
	PartyWorld      OtherParty = "World"
)

// StringOrList unmarshals a compose field that may be a scalar string or a
// YAML sequence of strings into a slice, per compose-spec convention.
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = StringOrList{single}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	case 0:
		*s = nil
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence, got kind %v", node.Kind)
	}
}

// MapOrList unmarshals a compose `environment:` field given either as a
// mapping (key: value) or a sequence of "KEY=VALUE" strings.
type MapOrList map[string]string

func (m *MapOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var mp map[string]string
		if err := node.Decode(&mp); err != nil {
			return err
		}
		*m = mp
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		mp := make(map[string]string, len(list))
		for _, kv := range list {
			for i := 0; i < len(kv); i++ {
				if kv[i] == '=' {
					mp[kv[:i]] = kv[i+1:]
					break
				}
			}
		}
		*m = mp
		return nil
	case 0:
		*m = nil
		return nil
	default:
		return fmt.Errorf("expected mapping or sequence, got kind %v", node.Kind)
	}
}

// Parse unmarshals raw compose YAML into a Document.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse compose document: %w", err)
	}
	return &doc, nil
}
