package compose

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/flagforge/ctfmanager/pkg/cluster"
	"github.com/flagforge/ctfmanager/pkg/ctferrors"
)

const dataPVCName = "pf-internal-ctf-data"

// Options carries everything Translate needs beyond the parsed Document:
// where the challenge's rendered files live (to resolve env_file/bind
// sources), the instance's identity, and the password derivation the SSH
// gateway CRs need.
type Options struct {
	ChallengeID         string
	InstanceNamespace   string
	ExposedDomain       string
	MetadataDataPVCSize string
	DerivePassword      func(purpose string) string
}

// Translate converts a parsed compose Document into a cluster.Plan, per
// spec.md §4.F. scratchDir is the rendered challenge directory Translate
// reads env_file sources from; bind-mount sources are mapped onto the data
// volume without being read from it.
func Translate(scratchDir string, doc *Document, opts Options) (*cluster.Plan, error) {
	plan := &cluster.Plan{Namespace: opts.InstanceNamespace}
	needsDataPVC := false

	for _, id := range sortedKeys(doc.Services) {
		svc := doc.Services[id]
		if rejected := svc.RejectedFields(); len(rejected) > 0 {
			return nil, ctferrors.NewPropertyNotSupported(rejected[0])
		}
		objs, usesDataPVC, err := translateService(scratchDir, id, svc, opts)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", id, err)
		}
		plan.Objects = append(plan.Objects, objs...)
		needsDataPVC = needsDataPVC || usesDataPVC
	}

	for _, name := range sortedKeys(doc.Volumes) {
		vol := doc.Volumes[name]
		if vol.External {
			return nil, errExternalVolume(name)
		}
		size := vol.XSize
		if size == "" {
			size = "1Gi"
		}
		plan.Objects = append(plan.Objects, namedVolumePVC(opts.InstanceNamespace, name, size))
	}

	if needsDataPVC {
		size := opts.MetadataDataPVCSize
		if size == "" {
			size = "1Gi"
		}
		plan.Objects = append(plan.Objects, namedVolumePVC(opts.InstanceNamespace, dataPVCName, size))
	}

	for _, name := range sortedKeys(doc.VMs) {
		objs, err := translateVM(name, doc.VMs[name], opts)
		if err != nil {
			return nil, fmt.Errorf("vm %q: %w", name, err)
		}
		plan.Objects = append(plan.Objects, objs...)
	}

	return plan, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func namedVolumePVC(namespace, name, size string) *cluster.PersistentVolumeClaim {
	return &cluster.PersistentVolumeClaim{
		ObjectMeta: cluster.ObjectMeta{Name: name, Namespace: namespace},
		Spec: cluster.PVCSpec{
			AccessModes: []string{"ReadWriteOnce"},
			Resources:   map[string]string{"requests.storage": size},
		},
	}
}

func translateService(scratchDir, id string, svc Service, opts Options) ([]cluster.Object, bool, error) {
	if svc.Scale != nil && svc.Deploy != nil && svc.Deploy.Replicas != nil {
		return nil, false, errReplicaConflict(id)
	}
	replicas := int32(1)
	if svc.Scale != nil {
		replicas = int32(*svc.Scale)
	} else if svc.Deploy != nil && svc.Deploy.Replicas != nil {
		replicas = int32(*svc.Deploy.Replicas)
	}

	labels := map[string]string{"component": id}
	if svc.Deploy != nil {
		for k, v := range svc.Deploy.Labels {
			labels[k] = v
		}
	}
	for k, v := range svc.Labels {
		labels[k] = v
	}

	runtimeClass := svc.Runtime
	if svc.Privileged || len(svc.CapAdd) > 0 {
		runtimeClass = "kata"
	}

	var hostAliases []cluster.HostAlias
	for _, entry := range svc.ExtraHosts {
		host, ip, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		hostAliases = append(hostAliases, cluster.HostAlias{IP: ip, Hostnames: []string{host}})
	}

	var dnsConfig *cluster.PodDNSConfig
	if len(svc.DNS) > 0 || len(svc.DNSOpt) > 0 || len(svc.DNSSearch) > 0 {
		dnsConfig = &cluster.PodDNSConfig{
			Nameservers: svc.DNS,
			Options:     svc.DNSOpt,
			Searches:    svc.DNSSearch,
		}
	}

	var graceSec *int64
	if svc.StopGracePeriod != "" {
		d, err := time.ParseDuration(svc.StopGracePeriod)
		if err != nil {
			return nil, false, fmt.Errorf("stop_grace_period: %w", err)
		}
		sec := int64(d.Seconds())
		graceSec = &sec
	}

	volumes, mounts, usesDataPVC, err := translateVolumes(id, svc.Volumes)
	if err != nil {
		return nil, false, err
	}
	if svc.ShmSize != "" {
		volumes = append(volumes, cluster.VolumeSource{Name: "shm", EmptyDir: &cluster.EmptyDirVolume{Medium: "Memory", SizeLimit: svc.ShmSize}})
		mounts = append(mounts, cluster.VolumeMountRef{Name: "shm", MountPath: "/dev/shm"})
	}
	for i, tmp := range svc.Tmpfs {
		name := fmt.Sprintf("tmpfs-%d", i)
		volumes = append(volumes, cluster.VolumeSource{Name: name, EmptyDir: &cluster.EmptyDirVolume{Medium: "Memory"}})
		mounts = append(mounts, cluster.VolumeMountRef{Name: name, MountPath: tmp})
	}

	secCtx, supplementalGroups, err := translateSecurity(id, svc)
	if err != nil {
		return nil, false, err
	}

	resources := translateResources(svc)

	command, args, initContainers := translateCommand(svc)

	env, err := translateEnvironment(scratchDir, id, svc)
	if err != nil {
		return nil, false, err
	}

	var containerPorts []int32
	for _, e := range svc.Expose {
		if p, err := strconv.Atoi(e); err == nil {
			containerPorts = append(containerPorts, int32(p))
		}
	}
	for _, p := range svc.Ports {
		containerPorts = append(containerPorts, int32(p.Target))
	}

	container := cluster.Container{
		Name:            id,
		Image:           svc.Image,
		Command:         command,
		Args:            args,
		Env:             env,
		Ports:           containerPorts,
		Resources:       resources,
		SecurityContext: secCtx,
		VolumeMounts:    mounts,
	}

	dep := &cluster.Deployment{
		ObjectMeta: cluster.ObjectMeta{Name: id, Namespace: opts.InstanceNamespace, Labels: labels},
		Spec: cluster.DeploymentSpec{
			Replicas: replicas,
			Selector: cluster.Selector{MatchLabels: map[string]string{"component": id}},
			Template: cluster.PodTemplate{
				Labels:              map[string]string{"component": id},
				RuntimeClassName:    runtimeClass,
				Hostname:            svc.Hostname,
				Subdomain:           svc.Subdomain,
				HostAliases:         hostAliases,
				DNSConfig:           dnsConfig,
				TerminationGraceSec: graceSec,
				OS:                  "linux",
				SupplementalGroups:  supplementalGroups,
				InitContainers:      initContainers,
				Containers:          []cluster.Container{container},
				Volumes:             volumes,
			},
		},
	}

	objs := []cluster.Object{dep, headlessService(id, opts.InstanceNamespace)}

	if len(svc.Ports) > 0 {
		proxied, err := proxiedService(id, opts.InstanceNamespace, svc.Ports)
		if err != nil {
			return nil, false, err
		}
		objs = append(objs, proxied)
		objs = append(objs, portObjects(id, opts, svc.Ports)...)
	}

	return objs, usesDataPVC, nil
}

func headlessService(id, namespace string) *cluster.Service {
	return &cluster.Service{
		ObjectMeta: cluster.ObjectMeta{Name: id, Namespace: namespace},
		Spec: cluster.ServiceSpec{
			Selector:  map[string]string{"component": id},
			ClusterIP: "None",
		},
	}
}

func proxiedServiceName(id string) string { return id + "-exposed-ports" }

func proxiedService(id, namespace string, ports []Port) (*cluster.Service, error) {
	var svcPorts []cluster.ServicePort
	for _, p := range ports {
		if p.HostIP != "" {
			return nil, errPortWithHostIP(id, p.Target)
		}
		protocol := strings.ToUpper(p.Protocol)
		if protocol == "" {
			protocol = "TCP"
		}
		if protocol == "UDP" {
			return nil, errUDPOnProxiedService(id, p.Target)
		}
		published := p.Published
		if published == "" {
			published = strconv.Itoa(p.Target)
		}
		pub, err := strconv.Atoi(published)
		if err != nil {
			return nil, fmt.Errorf("port %d: invalid published port %q: %w", p.Target, published, err)
		}
		svcPorts = append(svcPorts, cluster.ServicePort{
			Name:       fmt.Sprintf("p%d", p.Target),
			Port:       int32(pub),
			TargetPort: int32(p.Target),
			Protocol:   protocol,
		})
	}
	return &cluster.Service{
		ObjectMeta: cluster.ObjectMeta{Name: proxiedServiceName(id), Namespace: namespace},
		Spec: cluster.ServiceSpec{
			Selector: map[string]string{"component": id},
			Ports:    svcPorts,
		},
	}, nil
}

// publishedOrTarget returns the port's published number, falling back to the
// target port when published is unset (compose allows omitting it).
func publishedOrTarget(p Port) string {
	if p.Published != "" {
		return p.Published
	}
	return strconv.Itoa(p.Target)
}

// portObjects emits the HTTP/TCP ingress or SSH gateway CR for each port,
// per spec.md §4.F's port-routing rules.
func portObjects(id string, opts Options, ports []Port) []cluster.Object {
	var objs []cluster.Object
	backend := proxiedServiceName(id)
	for _, p := range ports {
		protocol := strings.ToUpper(p.Protocol)
		if protocol == "" {
			protocol = "TCP"
		}
		if protocol != "TCP" {
			continue
		}
		switch p.AppProtocol {
		case "http":
			host := fmt.Sprintf("%s-%s-%s.%s", id, publishedOrTarget(p), opts.InstanceNamespace, opts.ExposedDomain)
			objs = append(objs, &cluster.IngressRoute{
				ObjectMeta: cluster.ObjectMeta{Name: fmt.Sprintf("%s-%d", id, p.Target), Namespace: opts.InstanceNamespace},
				Spec: cluster.IngressRouteSpec{
					EntryPoints: []string{"websecure"},
					Routes: []cluster.IngressRouteRoute{{
						Match: fmt.Sprintf("Host(`%s`)", host),
						Kind:  "Rule",
						Services: []cluster.IngressBackend{{
							Name: backend,
							Port: int32(p.Target),
						}},
					}},
				},
			})
		case "ssh":
			if p.XUsername == "" || p.XPassword == "" {
				continue
			}
			gatewayPassword := ""
			if opts.DerivePassword != nil {
				gatewayPassword = opts.DerivePassword("ssh")
			}
			objs = append(objs, &cluster.SSHGateway{
				ObjectMeta: cluster.ObjectMeta{Name: fmt.Sprintf("%s-%s", id, publishedOrTarget(p)), Namespace: opts.InstanceNamespace},
				Spec: cluster.SSHGatewaySpec{
					BackendService:  backend,
					BackendPort:     int32(p.Target),
					BackendUsername: p.XUsername,
					BackendPassword: p.XPassword,
					GatewayPassword: gatewayPassword,
				},
			})
		default:
			host := fmt.Sprintf("%s-%s-%s.%s", id, publishedOrTarget(p), opts.InstanceNamespace, opts.ExposedDomain)
			objs = append(objs, &cluster.IngressRouteTCP{
				ObjectMeta: cluster.ObjectMeta{Name: fmt.Sprintf("%s-%d-tcp", id, p.Target), Namespace: opts.InstanceNamespace},
				Spec: cluster.IngressRouteTCPSpec{
					EntryPoints: []string{"websecure"},
					Routes: []cluster.IngressRouteTCPRoute{{
						Match:    fmt.Sprintf("HostSNI(`%s`)", host),
						Services: []cluster.IngressBackend{{Name: backend, Port: int32(p.Target)}},
					}},
					TLS: &cluster.IngressRouteTCPTLS{Passthrough: false},
				},
			})
		}
	}
	return objs
}

func translateVolumes(id string, mounts []VolumeMount) ([]cluster.VolumeSource, []cluster.VolumeMountRef, bool, error) {
	var volumes []cluster.VolumeSource
	var refs []cluster.VolumeMountRef
	usesDataPVC := false
	seen := map[string]bool{}

	for i, m := range mounts {
		switch m.Type {
		case "", "volume":
			if m.Source == "" {
				return nil, nil, false, errAnonymousVolume(id, m.Target)
			}
			if !seen[m.Source] {
				volumes = append(volumes, cluster.VolumeSource{Name: m.Source, ClaimName: m.Source})
				seen[m.Source] = true
			}
			refs = append(refs, cluster.VolumeMountRef{Name: m.Source, MountPath: m.Target, ReadOnly: m.ReadOnly})
		case "bind":
			cleaned := filepath.ToSlash(filepath.Clean(m.Source))
			if cleaned != "data" && !strings.HasPrefix(cleaned, "data/") {
				return nil, nil, false, errHostPathVolume(id, m.Source)
			}
			usesDataPVC = true
			if !seen[dataPVCName] {
				volumes = append(volumes, cluster.VolumeSource{Name: dataPVCName, ClaimName: dataPVCName})
				seen[dataPVCName] = true
			}
			refs = append(refs, cluster.VolumeMountRef{Name: dataPVCName, MountPath: m.Target, ReadOnly: m.ReadOnly})
		case "tmpfs":
			name := fmt.Sprintf("bindtmpfs-%d", i)
			volumes = append(volumes, cluster.VolumeSource{Name: name, EmptyDir: &cluster.EmptyDirVolume{Medium: "Memory"}})
			refs = append(refs, cluster.VolumeMountRef{Name: name, MountPath: m.Target, ReadOnly: m.ReadOnly})
		case "npipe":
			return nil, nil, false, errNamedPipeVolume(id, m.Target)
		case "cluster":
			return nil, nil, false, errClusterVolume(id, m.Target)
		default:
			return nil, nil, false, errClusterVolume(id, m.Target)
		}
	}
	return volumes, refs, usesDataPVC, nil
}

func translateSecurity(id string, svc Service) (*cluster.SecurityContext, []int64, error) {
	var groups []int64
	for _, g := range svc.GroupAdd {
		n, err := strconv.ParseInt(g, 10, 64)
		if err != nil {
			return nil, nil, errUserNameNotSupported(id, g)
		}
		groups = append(groups, n)
	}

	ctx := &cluster.SecurityContext{
		CapabilitiesAdd:  svc.CapAdd,
		CapabilitiesDrop: svc.CapDrop,
	}
	if svc.Privileged {
		t := true
		ctx.Privileged = &t
	}
	if svc.ReadOnly {
		t := true
		ctx.ReadOnlyRootFilesystem = &t
	}
	if svc.User != "" && svc.User != "root" {
		n, err := strconv.ParseInt(svc.User, 10, 64)
		if err != nil {
			return nil, nil, errUserNameNotSupported(id, svc.User)
		}
		ctx.RunAsUser = &n
	} else if svc.User == "root" {
		var zero int64
		ctx.RunAsUser = &zero
	}
	return ctx, groups, nil
}

func translateResources(svc Service) cluster.ResourceRequirements {
	res := cluster.ResourceRequirements{}
	if svc.MemReservation != "" {
		res.Requests = map[string]string{"memory": svc.MemReservation}
	}
	if svc.MemLimit != "" {
		if res.Limits == nil {
			res.Limits = map[string]string{}
		}
		res.Limits["memory"] = svc.MemLimit
	}
	cpu := svc.CPUs
	if cpu == "" && svc.CPUCount != nil {
		cpu = strconv.Itoa(*svc.CPUCount)
	}
	if cpu != "" {
		if res.Limits == nil {
			res.Limits = map[string]string{}
		}
		res.Limits["cpu"] = cpu
	}
	return res
}

func translateCommand(svc Service) ([]string, []string, []cluster.Container) {
	entrypoint := []string(svc.Entrypoint)
	command := []string(svc.Command)

	if !svc.Init {
		return entrypointOrCommand(entrypoint), entrypointOrCommand(command), nil
	}

	var args []string
	args = append(args, entrypointOrCommand(entrypoint)...)
	args = append(args, entrypointOrCommand(command)...)

	initContainer := cluster.Container{
		Name:  "tini-init",
		Image: "busybox",
		Command: []string{
			"sh", "-c", "cp /usr/bin/tini /tini-bin/tini",
		},
		VolumeMounts: []cluster.VolumeMountRef{{Name: "tini", MountPath: "/tini-bin"}},
	}
	return []string{"/tini/tini", "--"}, args, []cluster.Container{initContainer}
}

func entrypointOrCommand(parts []string) []string {
	if len(parts) == 1 {
		return splitShellWords(parts[0])
	}
	return parts
}

// splitShellWords splits a string into words honoring single and double
// quotes, matching the shell-like quote handling spec.md §4.F requires for
// string-form command/entrypoint.
func splitShellWords(s string) []string {
	var words []string
	var cur strings.Builder
	var quote rune
	inWord := false
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words
}

func translateEnvironment(scratchDir, id string, svc Service) (map[string]string, error) {
	env := map[string]string{}
	for _, path := range svc.EnvFile {
		required := !strings.HasPrefix(path, "?")
		cleanPath := strings.TrimPrefix(path, "?")
		full := filepath.Join(scratchDir, cleanPath)
		rel, err := filepath.Rel(scratchDir, full)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, errEnvFileOutOfBounds(id, cleanPath)
		}
		vars, err := readEnvFile(full)
		if err != nil {
			if os.IsNotExist(err) && !required {
				continue
			}
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("required env_file %q: %w", cleanPath, err)
			}
			return nil, err
		}
		for k, v := range vars {
			env[k] = v
		}
	}
	for k, v := range svc.Environment {
		env[k] = v
	}
	return env, nil
}

func readEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vars := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
	}
	return vars, scanner.Err()
}

func translateVM(name string, vm VM, opts Options) ([]cluster.Object, error) {
	var disks []cluster.VMDisk
	for _, d := range vm.Disks {
		disks = append(disks, cluster.VMDisk{
			Kind:      d.Kind,
			Image:     d.Image,
			CloudInit: d.CloudInit,
			ClaimName: d.ClaimName,
		})
	}

	labels := map[string]string{"component": name}
	for k, v := range vm.Labels {
		labels[k] = v
	}

	objs := []cluster.Object{
		&cluster.VirtualMachine{
			ObjectMeta: cluster.ObjectMeta{Name: name, Namespace: opts.InstanceNamespace, Labels: labels},
			Spec: cluster.VMSpec{
				CPUCores: int32(vm.CPUCores),
				MemoryMi: int32(vm.MemoryMi),
				Disks:    disks,
			},
		},
		headlessService(name, opts.InstanceNamespace),
	}

	if len(vm.Ports) > 0 {
		proxied, err := proxiedService(name, opts.InstanceNamespace, vm.Ports)
		if err != nil {
			return nil, err
		}
		objs = append(objs, proxied)
		objs = append(objs, portObjects(name, opts, vm.Ports)...)
	}
	return objs, nil
}
