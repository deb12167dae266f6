package gateway

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// pipeBackendDialer hands back an *ssh.Client wired over an in-memory
// net.Pipe instead of dialing a real backend, so pipeExec's exit-status
// propagation can be exercised without a real SSH server.
type pipeBackendDialer struct {
	conn net.Conn
}

func (d *pipeBackendDialer) Dial(Backend) (*ssh.Client, error) {
	conn, chans, reqs, err := ssh.NewClientConn(d.conn, "pipe", &ssh.ClientConfig{
		User:            "backend",
		Auth:            []ssh.AuthMethod{ssh.Password("anything")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	if err != nil {
		return nil, err
	}
	return ssh.NewClient(conn, chans, reqs), nil
}

// serveScriptedBackend plays the backend side of the pipe: it accepts one
// session channel's exec request, replies success, then immediately echoes
// back exitStatus as an exit-status request before closing the channel.
func serveScriptedBackend(t *testing.T, conn net.Conn, exitStatus uint32) {
	t.Helper()
	config := &ssh.ServerConfig{NoClientAuth: true}
	config.AddHostKey(testSigner(t))

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			return
		}
		for req := range requests {
			switch req.Type {
			case "exec", "shell":
				req.Reply(true, nil)
				payload := ssh.Marshal(struct{ Status uint32 }{Status: exitStatus})
				channel.SendRequest("exit-status", false, payload)
				channel.Close()
			default:
				req.Reply(false, nil)
			}
		}
	}
}

func TestPipeExec_PropagatesBackendExitStatus(t *testing.T) {
	backendClientConn, backendServerConn := net.Pipe()
	go serveScriptedBackend(t, backendServerConn, 7)

	registry := NewBackendRegistry()
	registry.Register("box-ns", Backend{})
	server := NewServer(testSigner(t), registry, &pipeBackendDialer{conn: backendClientConn})

	gwClientConn, gwServerConn := net.Pipe()
	go server.handleConn(gwServerConn)

	conn, chans, reqs, err := ssh.NewClientConn(gwClientConn, "pipe", &ssh.ClientConfig{
		User:            "box-ns",
		Auth:            []ssh.AuthMethod{ssh.Password("anything")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	require.NoError(t, err)
	client := ssh.NewClient(conn, chans, reqs)
	defer client.Close()

	sess, err := client.NewSession()
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Run("whoami")
	var exitErr *ssh.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 7, exitErr.ExitStatus())
}

func TestPipeExec_ZeroExitStatusOnCleanBackendExit(t *testing.T) {
	backendClientConn, backendServerConn := net.Pipe()
	go serveScriptedBackend(t, backendServerConn, 0)

	registry := NewBackendRegistry()
	registry.Register("box-ns", Backend{})
	server := NewServer(testSigner(t), registry, &pipeBackendDialer{conn: backendClientConn})

	gwClientConn, gwServerConn := net.Pipe()
	go server.handleConn(gwServerConn)

	conn, chans, reqs, err := ssh.NewClientConn(gwClientConn, "pipe", &ssh.ClientConfig{
		User:            "box-ns",
		Auth:            []ssh.AuthMethod{ssh.Password("anything")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	require.NoError(t, err)
	client := ssh.NewClient(conn, chans, reqs)
	defer client.Close()

	sess, err := client.NewSession()
	require.NoError(t, err)
	defer sess.Close()

	assert.NoError(t, sess.Run("whoami"))
}
