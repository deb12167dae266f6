// Package cluster defines the minimal set of cluster object kinds the
// compose translator emits, per spec.md §4.F. These are plain structs
// sufficient for the fields the translator sets — deliberately not
// k8s.io/apimachinery/client-go typed clients, per spec.md's design notes —
// grounded on the teacher's generic "apply a resource by kind" convention
// (cmd/warren/apply.go's WarrenResource).
package cluster

// ObjectMeta is the common identifying/labeling data every cluster object
// carries.
type ObjectMeta struct {
	Name        string            `yaml:"name"`
	Namespace   string            `yaml:"namespace"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// Object is satisfied by every cluster object kind the translator can emit.
type Object interface {
	Kind() string
	Meta() ObjectMeta
}

// Deployment is the minimal Deployment shape the translator populates.
type Deployment struct {
	ObjectMeta ObjectMeta     `yaml:"metadata"`
	Spec       DeploymentSpec `yaml:"spec"`
}

func (d *Deployment) Kind() string     { return "Deployment" }
func (d *Deployment) Meta() ObjectMeta { return d.ObjectMeta }

// DeploymentSpec holds the pod template and replica count.
type DeploymentSpec struct {
	Replicas int32       `yaml:"replicas"`
	Selector Selector    `yaml:"selector"`
	Template PodTemplate `yaml:"template"`
}

// Selector is a label selector, used to bind a Deployment to its Service.
type Selector struct {
	MatchLabels map[string]string `yaml:"matchLabels"`
}

// PodTemplate is the minimal pod spec the translator needs to express.
type PodTemplate struct {
	Labels              map[string]string `yaml:"labels,omitempty"`
	Annotations         map[string]string `yaml:"annotations,omitempty"`
	RuntimeClassName    string            `yaml:"runtimeClassName,omitempty"`
	Hostname            string            `yaml:"hostname,omitempty"`
	Subdomain           string            `yaml:"subdomain,omitempty"`
	HostAliases         []HostAlias       `yaml:"hostAliases,omitempty"`
	DNSConfig           *PodDNSConfig     `yaml:"dnsConfig,omitempty"`
	TerminationGraceSec *int64            `yaml:"terminationGracePeriodSeconds,omitempty"`
	OS                  string            `yaml:"os,omitempty"` // always "linux"
	SupplementalGroups  []int64           `yaml:"supplementalGroups,omitempty"`
	InitContainers      []Container       `yaml:"initContainers,omitempty"`
	Containers          []Container       `yaml:"containers"`
	Volumes             []VolumeSource    `yaml:"volumes,omitempty"`
}

// HostAlias maps an IP to hostnames, populated from extra_hosts.
type HostAlias struct {
	IP        string   `yaml:"ip"`
	Hostnames []string `yaml:"hostnames"`
}

// PodDNSConfig carries dns/dns_opt/dns_search.
type PodDNSConfig struct {
	Nameservers []string `yaml:"nameservers,omitempty"`
	Searches    []string `yaml:"searches,omitempty"`
	Options     []string `yaml:"options,omitempty"`
}

// Container is the minimal container shape the translator populates.
type Container struct {
	Name            string             `yaml:"name"`
	Image           string             `yaml:"image"`
	Command         []string           `yaml:"command,omitempty"`
	Args            []string           `yaml:"args,omitempty"`
	Env             map[string]string  `yaml:"env,omitempty"`
	Ports           []int32            `yaml:"ports,omitempty"`
	Resources       ResourceRequirements `yaml:"resources,omitempty"`
	SecurityContext *SecurityContext   `yaml:"securityContext,omitempty"`
	VolumeMounts    []VolumeMountRef   `yaml:"volumeMounts,omitempty"`
}

// ResourceRequirements carries memory/cpu requests and limits.
type ResourceRequirements struct {
	Requests map[string]string `yaml:"requests,omitempty"`
	Limits   map[string]string `yaml:"limits,omitempty"`
}

// SecurityContext is the container-level security context the translator sets.
type SecurityContext struct {
	Privileged             *bool    `yaml:"privileged,omitempty"`
	RunAsUser              *int64   `yaml:"runAsUser,omitempty"`
	ReadOnlyRootFilesystem *bool    `yaml:"readOnlyRootFilesystem,omitempty"`
	CapabilitiesAdd        []string `yaml:"capabilitiesAdd,omitempty"`
	CapabilitiesDrop       []string `yaml:"capabilitiesDrop,omitempty"`
}

// VolumeSource is one pod-level volume entry (PVC claim, emptyDir, etc).
type VolumeSource struct {
	Name      string `yaml:"name"`
	ClaimName string `yaml:"claimName,omitempty"`
	EmptyDir  *EmptyDirVolume `yaml:"emptyDir,omitempty"`
}

// EmptyDirVolume describes a tmpfs-backed emptyDir.
type EmptyDirVolume struct {
	Medium    string `yaml:"medium,omitempty"` // "Memory" for tmpfs
	SizeLimit string `yaml:"sizeLimit,omitempty"`
}

// VolumeMountRef mounts a pod volume into a container.
type VolumeMountRef struct {
	Name      string `yaml:"name"`
	MountPath string `yaml:"mountPath"`
	ReadOnly  bool   `yaml:"readOnly,omitempty"`
}

// Service is either the always-present headless DNS service or the optional
// proxied ClusterIP service, per spec.md §4.F.
type Service struct {
	ObjectMeta ObjectMeta  `yaml:"metadata"`
	Spec       ServiceSpec `yaml:"spec"`
}

func (s *Service) Kind() string     { return "Service" }
func (s *Service) Meta() ObjectMeta { return s.ObjectMeta }

// ServiceSpec is the minimal Service spec shape.
type ServiceSpec struct {
	Selector  map[string]string `yaml:"selector"`
	ClusterIP string            `yaml:"clusterIP,omitempty"` // "None" for headless
	Ports     []ServicePort     `yaml:"ports,omitempty"`
}

// ServicePort is one Service port mapping.
type ServicePort struct {
	Name       string `yaml:"name"`
	Port       int32  `yaml:"port"`
	TargetPort int32  `yaml:"targetPort"`
	Protocol   string `yaml:"protocol"` // TCP|UDP
}

// IngressRoute is a Traefik-style HTTP ingress route.
type IngressRoute struct {
	ObjectMeta ObjectMeta       `yaml:"metadata"`
	Spec       IngressRouteSpec `yaml:"spec"`
}

func (r *IngressRoute) Kind() string     { return "IngressRoute" }
func (r *IngressRoute) Meta() ObjectMeta { return r.ObjectMeta }

// IngressRouteSpec carries the entrypoints and routing rule.
type IngressRouteSpec struct {
	EntryPoints []string          `yaml:"entryPoints"`
	Routes      []IngressRouteRoute `yaml:"routes"`
}

// IngressRouteRoute matches a Host() rule to a backend service.
type IngressRouteRoute struct {
	Match    string            `yaml:"match"`
	Kind     string            `yaml:"kind"` // "Rule"
	Services []IngressBackend  `yaml:"services"`
}

// IngressBackend names the Service and port a route forwards to.
type IngressBackend struct {
	Name string `yaml:"name"`
	Port int32  `yaml:"port"`
}

// IngressRouteTCP is a Traefik-style TCP ingress route (SNI passthrough or
// TLS-terminated-at-proxy).
type IngressRouteTCP struct {
	ObjectMeta ObjectMeta          `yaml:"metadata"`
	Spec       IngressRouteTCPSpec `yaml:"spec"`
}

func (r *IngressRouteTCP) Kind() string     { return "IngressRouteTCP" }
func (r *IngressRouteTCP) Meta() ObjectMeta { return r.ObjectMeta }

// IngressRouteTCPSpec carries the SNI match rule and TLS termination mode.
type IngressRouteTCPSpec struct {
	EntryPoints []string               `yaml:"entryPoints"`
	Routes      []IngressRouteTCPRoute `yaml:"routes"`
	TLS         *IngressRouteTCPTLS    `yaml:"tls,omitempty"`
}

// IngressRouteTCPRoute matches a HostSNI() rule to a backend service.
type IngressRouteTCPRoute struct {
	Match    string           `yaml:"match"`
	Services []IngressBackend `yaml:"services"`
}

// IngressRouteTCPTLS configures TLS termination; Passthrough=false means the
// proxy terminates TLS itself.
type IngressRouteTCPTLS struct {
	Passthrough bool `yaml:"passthrough"`
}

// PersistentVolumeClaim is the minimal PVC shape for named and shared
// data volumes.
type PersistentVolumeClaim struct {
	ObjectMeta ObjectMeta `yaml:"metadata"`
	Spec       PVCSpec    `yaml:"spec"`
}

func (p *PersistentVolumeClaim) Kind() string     { return "PersistentVolumeClaim" }
func (p *PersistentVolumeClaim) Meta() ObjectMeta { return p.ObjectMeta }

// PVCSpec carries the access mode and requested size.
type PVCSpec struct {
	AccessModes []string          `yaml:"accessModes"`
	Resources   map[string]string `yaml:"resources"` // {"requests.storage": "1Gi"}
}

// VirtualMachine is the cluster VM kind (KubeVirt-shaped) the translator
// emits for author-declared VMs.
type VirtualMachine struct {
	ObjectMeta ObjectMeta  `yaml:"metadata"`
	Spec       VMSpec      `yaml:"spec"`
}

func (v *VirtualMachine) Kind() string     { return "VirtualMachine" }
func (v *VirtualMachine) Meta() ObjectMeta { return v.ObjectMeta }

// VMSpec carries CPU/memory and the disk list.
type VMSpec struct {
	CPUCores int32    `yaml:"cpuCores"`
	MemoryMi int32    `yaml:"memoryMi"`
	Disks    []VMDisk `yaml:"disks"`
}

// VMDisk is one VM disk entry: ContainerDisk, CloudInit, or PVC-backed.
type VMDisk struct {
	Kind      string `yaml:"kind"`
	Image     string `yaml:"image,omitempty"`
	CloudInit string `yaml:"cloudInit,omitempty"`
	ClaimName string `yaml:"claimName,omitempty"`
}

// SSHGateway is the custom resource the SSH reverse proxy's controller
// watches, per spec.md §4.I.
type SSHGateway struct {
	ObjectMeta ObjectMeta     `yaml:"metadata"`
	Spec       SSHGatewaySpec `yaml:"spec"`
}

func (g *SSHGateway) Kind() string     { return "SSHGateway" }
func (g *SSHGateway) Meta() ObjectMeta { return g.ObjectMeta }

// SSHGatewaySpec names the backend the gateway proxies SSH sessions to.
type SSHGatewaySpec struct {
	BackendService  string `yaml:"backendService"`
	BackendPort     int32  `yaml:"backendPort"`
	BackendUsername string `yaml:"backendUsername"`
	BackendPassword string `yaml:"backendPassword"`
	GatewayPassword string `yaml:"gatewayPassword"`
}

// CiliumNetworkPolicy is the Cilium-shaped network policy kind the network
// policy generator emits, per spec.md §4.F "Network policies".
type CiliumNetworkPolicy struct {
	ObjectMeta ObjectMeta              `yaml:"metadata"`
	Spec       CiliumNetworkPolicySpec `yaml:"spec"`
}

func (p *CiliumNetworkPolicy) Kind() string     { return "CiliumNetworkPolicy" }
func (p *CiliumNetworkPolicy) Meta() ObjectMeta { return p.ObjectMeta }

// CiliumNetworkPolicySpec carries the endpoint selector and ingress/egress
// rule lists.
type CiliumNetworkPolicySpec struct {
	EndpointSelector Selector                  `yaml:"endpointSelector"`
	Ingress          []CiliumIngressEgressRule `yaml:"ingress,omitempty"`
	Egress           []CiliumIngressEgressRule `yaml:"egress,omitempty"`
}

// CiliumIngressEgressRule is one ingress or egress entry: either a peer
// selector, a world-allow (empty selector) or a DNS rule with toPorts/dns.
type CiliumIngressEgressRule struct {
	FromEndpoints []Selector        `yaml:"fromEndpoints,omitempty"`
	ToEndpoints   []Selector        `yaml:"toEndpoints,omitempty"`
	// FromEntities/ToEntities name well-known Cilium entities ("world",
	// "cluster", "kube-dns", "all") that aren't expressible as a label
	// selector.
	FromEntities []string          `yaml:"fromEntities,omitempty"`
	ToEntities   []string          `yaml:"toEntities,omitempty"`
	ToPorts      []CiliumPortsRule `yaml:"toPorts,omitempty"`
}

// CiliumPortsRule restricts a rule to specific ports/protocols, optionally
// with a DNS name-matching clause for the DNS egress special-case.
type CiliumPortsRule struct {
	Ports []CiliumPort `yaml:"ports"`
	Rules *CiliumDNSRules `yaml:"rules,omitempty"`
}

// CiliumPort is one port/protocol pair within a CiliumPortsRule.
type CiliumPort struct {
	Port     string `yaml:"port"`
	Protocol string `yaml:"protocol"`
}

// CiliumDNSRules restricts DNS egress to matching patterns.
type CiliumDNSRules struct {
	DNS []CiliumDNSMatch `yaml:"dns"`
}

// CiliumDNSMatch is one DNS match-pattern entry.
type CiliumDNSMatch struct {
	MatchPattern string `yaml:"matchPattern"`
}
