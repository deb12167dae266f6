package gateway

import (
	"io"
	"net"
	"strconv"
	"sync"

	"golang.org/x/crypto/ssh"
)

// ptyRequest captures the pty-req payload the client sends before a shell
// or exec request, replayed against the backend session.
type ptyRequest struct {
	Term   string
	Width  uint32
	Height uint32
	PixelW uint32
	PixelH uint32
	Modes  string
}

// session holds the per-connection state the AwaitAuth/Matched/Piping
// machine from spec.md §4.I needs: the selected backend, buffered
// pty/env, and the dialer used to reach it once piping starts.
type session struct {
	dialer  BackendDialer
	backend Backend

	mu  sync.Mutex
	pty *ptyRequest
	env map[string]string
}

func newSession(dialer BackendDialer, backend Backend) *session {
	return &session{dialer: dialer, backend: backend, env: map[string]string{}}
}

// handleSessionChannel implements the Matched state: it buffers pty-req and
// env requests, then on shell/exec opens a client session against the
// backend and pumps bidirectionally (the Piping state).
func (s *session) handleSessionChannel(newChannel ssh.NewChannel) {
	channel, requests, err := newChannel.Accept()
	if err != nil {
		return
	}
	defer channel.Close()

	for req := range requests {
		switch req.Type {
		case "pty-req":
			s.mu.Lock()
			s.pty = parsePtyRequest(req.Payload)
			s.mu.Unlock()
			req.Reply(true, nil)
		case "env":
			name, value, ok := parseEnvRequest(req.Payload)
			if ok {
				s.mu.Lock()
				s.env[name] = value
				s.mu.Unlock()
			}
			req.Reply(true, nil)
		case "window-change":
			req.Reply(true, nil)
		case "shell":
			req.Reply(true, nil)
			s.pipeShell(channel)
			return
		case "exec":
			cmd, ok := parseExecRequest(req.Payload)
			req.Reply(ok, nil)
			if ok {
				s.pipeExec(channel, cmd)
			}
			return
		default:
			req.Reply(false, nil)
		}
	}
}

func (s *session) pipeShell(channel ssh.Channel) {
	client, err := s.dialer.Dial(s.backend)
	if err != nil {
		return
	}
	defer client.Close()

	backendSession, err := client.NewSession()
	if err != nil {
		return
	}
	defer backendSession.Close()

	s.applyEnvAndPty(backendSession)

	backendSession.Stdout = channel
	backendSession.Stderr = channel.Stderr()
	stdin, err := backendSession.StdinPipe()
	if err != nil {
		return
	}
	go func() { io.Copy(stdin, channel) }()

	if err := backendSession.Shell(); err != nil {
		return
	}
	sendExitStatus(channel, backendSession.Wait())
}

func (s *session) pipeExec(channel ssh.Channel, cmd string) {
	client, err := s.dialer.Dial(s.backend)
	if err != nil {
		return
	}
	defer client.Close()

	backendSession, err := client.NewSession()
	if err != nil {
		return
	}
	defer backendSession.Close()

	s.applyEnvAndPty(backendSession)

	backendSession.Stdout = channel
	backendSession.Stderr = channel.Stderr()
	stdin, err := backendSession.StdinPipe()
	if err != nil {
		return
	}
	go func() { io.Copy(stdin, channel) }()

	if err := backendSession.Start(cmd); err != nil {
		return
	}
	sendExitStatus(channel, backendSession.Wait())
}

// sendExitStatus propagates the backend session's exit status to the
// client channel, per spec.md §4.I's Piping state: "backend exit-status |
// same | Propagate then close". A nil wait error means a clean exit (0); a
// non-*ssh.ExitError (e.g. the connection dropped) is reported as 1 since
// there's no real exit code to relay.
func sendExitStatus(channel ssh.Channel, waitErr error) {
	status := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*ssh.ExitError); ok {
			status = exitErr.ExitStatus()
		} else {
			status = 1
		}
	}
	payload := ssh.Marshal(struct{ Status uint32 }{Status: uint32(status)})
	channel.SendRequest("exit-status", false, payload)
}

func (s *session) applyEnvAndPty(backendSession *ssh.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.env {
		backendSession.Setenv(k, v)
	}
	if s.pty != nil {
		backendSession.RequestPty(s.pty.Term, int(s.pty.Height), int(s.pty.Width), ssh.TerminalModes{})
	}
}

// handleDirectTCPIP implements the TcpPiping state: it opens a direct-tcpip
// channel through the backend client to the requested host/port and pumps
// bytes both ways.
func (s *session) handleDirectTCPIP(newChannel ssh.NewChannel) {
	var payload struct {
		DestAddr   string
		DestPort   uint32
		OriginAddr string
		OriginPort uint32
	}
	if err := ssh.Unmarshal(newChannel.ExtraData(), &payload); err != nil {
		newChannel.Reject(ssh.ConnectionFailed, "malformed direct-tcpip request")
		return
	}

	client, err := s.dialer.Dial(s.backend)
	if err != nil {
		newChannel.Reject(ssh.ConnectionFailed, "backend unreachable")
		return
	}
	defer client.Close()

	target := net.JoinHostPort(payload.DestAddr, strconv.Itoa(int(payload.DestPort)))
	backendConn, err := client.Dial("tcp", target)
	if err != nil {
		newChannel.Reject(ssh.ConnectionFailed, "backend dial failed")
		return
	}
	defer backendConn.Close()

	channel, requests, err := newChannel.Accept()
	if err != nil {
		return
	}
	defer channel.Close()
	go ssh.DiscardRequests(requests)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); io.Copy(backendConn, channel) }()
	go func() { defer wg.Done(); io.Copy(channel, backendConn) }()
	wg.Wait()
}

func parsePtyRequest(payload []byte) *ptyRequest {
	var p struct {
		Term   string
		Width  uint32
		Height uint32
		PixelW uint32
		PixelH uint32
		Modes  string
	}
	if err := ssh.Unmarshal(payload, &p); err != nil {
		return nil
	}
	return &ptyRequest{Term: p.Term, Width: p.Width, Height: p.Height, PixelW: p.PixelW, PixelH: p.PixelH, Modes: p.Modes}
}

func parseEnvRequest(payload []byte) (string, string, bool) {
	var p struct {
		Name  string
		Value string
	}
	if err := ssh.Unmarshal(payload, &p); err != nil {
		return "", "", false
	}
	return p.Name, p.Value, true
}

func parseExecRequest(payload []byte) (string, bool) {
	var p struct {
		Command string
	}
	if err := ssh.Unmarshal(payload, &p); err != nil {
		return "", false
	}
	return p.Command, true
}
