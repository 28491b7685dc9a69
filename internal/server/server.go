// Package server runs the chat service: it accepts TCP connections, spawns
// one session per connection, and coordinates teardown and graceful
// shutdown. All shared chat state lives in the registry; the server itself
// only tracks the set of live sessions.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/termchat/termchat/internal/protocol"
	"github.com/termchat/termchat/internal/registry"
)

const (
	serverName    = "termchat"
	serverVersion = "1.0.0"
)

// Server owns the listening socket and the set of live sessions. The accept
// loop never touches per-session state; it only spawns handlers.
type Server struct {
	cfg Config
	log *slog.Logger
	reg *registry.Registry

	listener net.Listener
	closing  atomic.Bool

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// New creates a Server with the default rooms from cfg already present in
// the registry.
func New(cfg Config, log *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		reg:      registry.New(cfg.DefaultRooms),
		sessions: make(map[string]*Session),
	}
}

// Listen binds the chat listener. Separate from Serve so callers (and tests)
// can learn the bound address before accepting, e.g. with PORT=0.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Addr reports the bound listener address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr()
}

// Serve accepts connections until ctx is canceled or the listener fails.
// Accept errors after a shutdown has started are expected and not reported.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	go func() {
		<-ctx.Done()
		s.closing.Store(true)
		_ = s.listener.Close()
	}()

	s.log.Info("listening", "addr", s.Addr(), "max_clients", s.cfg.MaxClients)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.startSession(conn)
	}
}

// startSession admits a new connection, enforcing the session cap, and
// launches its pump goroutines. Both the TCP acceptor and the WebSocket
// gateway enter here.
func (s *Server) startSession(conn transport) {
	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxClients {
		s.mu.Unlock()
		metricSessionsRejected.Inc()
		s.log.Warn("rejecting connection, server full", "remote", conn.RemoteAddr().String())
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_, _ = io.WriteString(conn, protocol.Encode(protocol.CmdError, protocol.ErrCodeServerFull, "server is full"))
		_ = conn.Close()
		return
	}
	sess := newSession(s, conn)
	s.sessions[sess.id] = sess
	total := len(s.sessions)
	s.mu.Unlock()

	metricSessionsActive.Inc()
	metricSessionsTotal.Inc()
	sess.log.Info("session opened", "total", total)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		sess.writePump()
	}()
	go func() {
		defer s.wg.Done()
		sess.readLoop()
	}()
}

// release tears a session down exactly once: registry cleanup, departure
// broadcast on the session's behalf, transport close. Safe to call from any
// goroutine, including another session's reader that found this session's
// queue stalled.
func (s *Server) release(sess *Session) {
	sess.closeOnce.Do(func() {
		nick, room := s.reg.Release(sess)
		close(sess.done)
		_ = sess.conn.Close()

		s.mu.Lock()
		delete(s.sessions, sess.id)
		total := len(s.sessions)
		s.mu.Unlock()
		metricSessionsActive.Dec()

		if nick != "" && room != "" {
			s.broadcast(room, protocol.Encode(protocol.CmdRoom, room, nick, "left"), nil)
		}
		sess.log.Info("session closed", "nickname", nick, "total", total)
	})
}

// broadcast fans a line out to a room and tears down any member whose queue
// has stalled, so a dead receiver cannot block the rest.
func (s *Server) broadcast(room, line string, exclude *Session) {
	var ex registry.Member
	if exclude != nil {
		ex = exclude
	}
	s.dropMembers(s.reg.Broadcast(room, line, ex))
}

func (s *Server) dropMembers(failed []registry.Member) {
	for _, m := range failed {
		metricMembersDropped.Inc()
		s.mu.Lock()
		sess := s.sessions[m.ID()]
		s.mu.Unlock()
		if sess != nil {
			sess.log.Warn("dropping stalled session")
			s.release(sess)
		}
	}
}

// Shutdown notifies every live session, closes their transports, and waits
// for the pump goroutines to finish, up to the timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.closing.Store(true)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.mu.Lock()
	sessions := lo.Values(s.sessions)
	s.mu.Unlock()

	s.log.Info("shutting down", "sessions", len(sessions))
	notice := protocol.Encode(protocol.CmdServer, "server shutting down")
	for _, sess := range sessions {
		_ = sess.writeDirect(notice, farewellTimeout)
		s.release(sess)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("shutdown complete")
		return nil
	case <-time.After(timeout):
		s.log.Warn("shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
