// Package gateway implements the standalone SSH reverse proxy, per
// spec.md §4.I: a fixed-port listener that authenticates connections
// against a BackendRegistry and pipes the session through to the backend
// the registry resolves to.
package gateway

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/flagforge/ctfmanager/pkg/log"
)

// DefaultPort is the gateway's fixed listening port, per spec.md §4.I.
const DefaultPort = 2222

// idleTimeout disconnects a session after this long without traffic in
// either direction, per spec.md §5.
const idleTimeout = 10 * time.Minute

// authRejectionDelay is held before replying to a failed auth attempt, to
// slow down password-guessing against the gateway.
const authRejectionDelay = 300 * time.Millisecond

// banner is shown to every connecting client before authentication, per
// spec.md §4.I: it must warn that remote port forwarding isn't supported.
const banner = "flagforge ssh gateway: tcpip-forward / remote port forwarding is not supported.\n"

var logger = log.WithComponent("gateway")

// backendKeyExtension names the ssh.Permissions extension that carries the
// matched username to the post-auth handler, which looks the Backend up in
// the registry again by that key.
const backendKeyExtension = "backend-key"

// Server accepts SSH connections and proxies authenticated sessions to the
// backend resolved via Registry.
type Server struct {
	HostKey  ssh.Signer
	Registry *BackendRegistry
	Dialer   BackendDialer
}

// NewServer constructs a Server. dialer may be nil, in which case
// NetworkDialer is used.
func NewServer(hostKey ssh.Signer, registry *BackendRegistry, dialer BackendDialer) *Server {
	if dialer == nil {
		dialer = NetworkDialer{}
	}
	return &Server{HostKey: hostKey, Registry: registry, Dialer: dialer}
}

// ListenAndServe opens a TCP listener on addr and serves connections until
// the listener is closed.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConn(conn)
	}
}

func (s *Server) config() *ssh.ServerConfig {
	config := &ssh.ServerConfig{
		BannerCallback: func(ssh.ConnMetadata) (string, error) {
			return banner, nil
		},
		PasswordCallback: func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			backend, ok := s.Registry.Lookup(meta.User())
			if !ok {
				time.Sleep(authRejectionDelay)
				return nil, fmt.Errorf("no backend registered for %q", meta.User())
			}
			if backend.GatewayPassword != "" && backend.GatewayPassword != string(password) {
				time.Sleep(authRejectionDelay)
				return nil, fmt.Errorf("password mismatch for %q", meta.User())
			}
			return &ssh.Permissions{Extensions: map[string]string{backendKeyExtension: meta.User()}}, nil
		},
	}
	config.AddHostKey(s.HostKey)
	return config
}

func (s *Server) handleConn(rawConn net.Conn) {
	conn := &idleResetConn{Conn: rawConn, timeout: idleTimeout}
	defer conn.Close()
	conn.resetDeadline()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, s.config())
	if err != nil {
		logger.Debug().Err(err).Msg("ssh handshake failed")
		return
	}
	defer sshConn.Close()
	go rejectGlobalRequests(reqs)

	backendKey := sshConn.Permissions.Extensions[backendKeyExtension]
	backend, ok := s.Registry.Lookup(backendKey)
	if !ok {
		return
	}
	sess := newSession(s.Dialer, backend)

	for newChannel := range chans {
		switch newChannel.ChannelType() {
		case "session":
			go sess.handleSessionChannel(newChannel)
		case "direct-tcpip":
			go sess.handleDirectTCPIP(newChannel)
		default:
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
		}
	}
}

// rejectGlobalRequests explicitly fails tcpip-forward / cancel-tcpip-forward
// (remote port forwarding is unsupported, per spec.md §4.I and §6) rather
// than silently discarding them, and discards everything else.
func rejectGlobalRequests(reqs <-chan *ssh.Request) {
	for req := range reqs {
		switch req.Type {
		case "tcpip-forward", "cancel-tcpip-forward":
			if req.WantReply {
				req.Reply(false, nil)
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// idleResetConn closes the underlying connection if neither Read nor Write
// make progress within timeout, per spec.md §5's SSH gateway idle timeout.
type idleResetConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleResetConn) resetDeadline() {
	if c.timeout > 0 {
		c.Conn.SetDeadline(time.Now().Add(c.timeout))
	}
}

func (c *idleResetConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	c.resetDeadline()
	return n, err
}

func (c *idleResetConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	c.resetDeadline()
	return n, err
}
