package compose

import "github.com/flagforge/ctfmanager/pkg/ctferrors"

// The translator's rejection matrix (spec.md §4.F) names several specific
// reasons beyond the generic PropertyNotSupported(name); each is reported as
// a BadArgument carrying the reason in its message so callers and logs can
// tell them apart without a second Kind enum.

func errAnonymousVolume(service, target string) error {
	return ctferrors.BadArgumentf("AnonymousVolume: service %q mounts %q with no volume source", service, target)
}

func errHostPathVolume(service, path string) error {
	return ctferrors.BadArgumentf("HostPathVolume(%s): service %q binds a host path outside ./data/", path, service)
}

func errNamedPipeVolume(service, target string) error {
	return ctferrors.BadArgumentf("NamedPipeVolume: service %q mounts %q as npipe", service, target)
}

func errClusterVolume(service, target string) error {
	return ctferrors.BadArgumentf("ClusterVolume: service %q mounts %q as a cluster volume", service, target)
}

func errPortWithHostIP(service string, port int) error {
	return ctferrors.BadArgumentf("PortWithHostIp: service %q port %d specifies a host_ip", service, port)
}

func errUserNameNotSupported(service, user string) error {
	return ctferrors.BadArgumentf("UserNameNotSupported: service %q user %q is not numeric or \"root\"", service, user)
}

func errEnvFileOutOfBounds(service, path string) error {
	return ctferrors.BadArgumentf("EnvFileOutOfBounds(%s): service %q's env_file escapes the challenge directory", path, service)
}

func errExternalVolume(name string) error {
	return ctferrors.BadArgumentf("ExternalVolume: volume %q is external", name)
}

func errReplicaConflict(service string) error {
	return ctferrors.BadArgumentf("service %q specifies both scale and deploy.replicas", service)
}

func errUDPOnProxiedService(service string, port int) error {
	return ctferrors.BadArgumentf("service %q port %d: UDP is not supported on the proxied service", service, port)
}
