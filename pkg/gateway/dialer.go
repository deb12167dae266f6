package gateway

import (
	"fmt"

	"golang.org/x/crypto/ssh"
)

// BackendDialer opens an SSH client connection to a registered Backend.
// Abstracted so tests can substitute an in-memory backend instead of
// dialing a real SSH server.
type BackendDialer interface {
	Dial(backend Backend) (*ssh.Client, error)
}

// NetworkDialer dials a Backend over TCP, authenticating with the
// Backend's own username/password — the real-world implementation used by
// cmd/gateway.
type NetworkDialer struct{}

// Dial connects to backend.Addr and authenticates as backend.Username.
func (NetworkDialer) Dial(backend Backend) (*ssh.Client, error) {
	client, err := ssh.Dial("tcp", backend.Addr, &ssh.ClientConfig{
		User:            backend.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(backend.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("dial backend %s: %w", backend.Addr, err)
	}
	return client, nil
}
