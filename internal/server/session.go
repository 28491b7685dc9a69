// Package server manages individual chat sessions, handling the read loop,
// write pump, rate limiting, and lifecycle control for each connection.
package server

import (
	"bufio"
	"io"
	"log/slog"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/termchat/termchat/internal/limiter"
	"github.com/termchat/termchat/internal/protocol"
)

const (
	writeTimeout = 10 * time.Second

	// farewellTimeout bounds direct writes issued right before teardown. A
	// stalled peer must not hold shutdown for the full writeTimeout.
	farewellTimeout = time.Second
)

// sessionState tracks where a session is in its registration lifecycle.
type sessionState int

const (
	stateConnected sessionState = iota // no nickname yet
	stateNamed                         // nickname set, not in a room
	stateInRoom                        // nickname set, member of one room
	stateClosed                        // transport gone
)

// transport is the minimal connection surface a session needs. *net.TCPConn
// satisfies it directly; the WebSocket gateway adapts frames onto it.
type transport interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
	SetWriteDeadline(t time.Time) error
}

// Session owns one client connection: its transport, outgoing queue, rate
// limiter, and protocol state. The state, nickname, and room fields are
// owned by the session's reader goroutine and must not be touched from
// anywhere else; everything cross-goroutine goes through the registry or the
// send queue.
type Session struct {
	id     string
	conn   transport
	srv    *Server
	log    *slog.Logger
	remote string

	send      chan string
	done      chan struct{}
	closeOnce sync.Once

	limiter *limiter.Limiter

	state    sessionState
	nickname string
	room     string
}

func newSession(srv *Server, conn transport) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		conn:    conn,
		srv:     srv,
		log:     srv.log.With("session", id, "remote", conn.RemoteAddr().String()),
		remote:  conn.RemoteAddr().String(),
		send:    make(chan string, srv.cfg.SendBufferSize),
		done:    make(chan struct{}),
		limiter: limiter.New(srv.cfg.MaxMessagesPerMinute, srv.cfg.RateLimitWindow),
	}
}

// ID implements registry.Member.
func (s *Session) ID() string { return s.id }

// Enqueue implements registry.Member. It never blocks: a full queue or a
// closed session reports false, and the caller treats the session as
// disconnected. This is the backpressure rule that keeps one stuck receiver
// from stalling a broadcast.
func (s *Session) Enqueue(line string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- line:
		return true
	default:
		return false
	}
}

func (s *Session) sendServer(text string) {
	s.Enqueue(protocol.Encode(protocol.CmdServer, text))
}

func (s *Session) sendError(code, detail string) {
	s.Enqueue(protocol.Encode(protocol.CmdError, code, detail))
}

// writePump drains the send queue onto the transport. A write failure closes
// the transport, which unblocks the reader and routes the session through the
// normal teardown path. On shutdown it flushes whatever is already queued.
func (s *Session) writePump() {
	for {
		select {
		case line := <-s.send:
			if err := s.writeLine(line); err != nil {
				s.log.Debug("write failed", "error", err)
				_ = s.conn.Close()
				return
			}
		case <-s.done:
			for {
				select {
				case line := <-s.send:
					if s.writeLine(line) != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Session) writeLine(line string) error {
	return s.writeDirect(line, writeTimeout)
}

// writeDirect bypasses the send queue. Used by the pump itself and for
// farewell lines written just before the transport is closed.
func (s *Session) writeDirect(line string, timeout time.Duration) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := io.WriteString(s.conn, line)
	return err
}

// readLoop drives the session: greet, then read one line at a time and run
// it through decode, rate limiting, and dispatch. Commands of one session
// are processed strictly in arrival order; there is no concurrency inside a
// session.
func (s *Session) readLoop() {
	defer func() {
		s.state = stateClosed
		s.srv.release(s)
	}()

	s.greet()

	// The reader buffer is the per-connection memory bound: a line that
	// overflows it is drained and rejected without ever being assembled, so a
	// hostile sender costs one buffer, not one line.
	reader := bufio.NewReaderSize(s.conn, protocol.MaxLineLength+2)
	for {
		data, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err != io.EOF {
				s.log.Debug("read failed", "error", err)
			}
			return
		}
		if isPrefix {
			for isPrefix {
				if _, isPrefix, err = reader.ReadLine(); err != nil {
					return
				}
			}
			metricProtocolErrors.Inc()
			s.sendError(protocol.ErrCodeProtocol,
				"line exceeds "+strconv.Itoa(protocol.MaxLineLength)+" bytes")
			continue
		}

		line := string(data)
		if strings.TrimSpace(line) == "" {
			continue
		}

		msg, err := protocol.Decode(line)
		if err != nil {
			metricProtocolErrors.Inc()
			s.sendError(protocol.ErrCodeProtocol, err.Error())
			continue
		}

		// Rate limiting covers every command, not only chat messages, so a
		// client cannot generate unbounded load with cheap commands.
		now := time.Now()
		if !s.limiter.Allow(now) {
			metricRateLimited.Inc()
			wait := int(math.Ceil(s.limiter.Wait(now).Seconds()))
			s.sendError(protocol.ErrCodeRateLimit, "too many commands, retry in "+strconv.Itoa(wait)+"s")
			continue
		}

		if quit := s.srv.dispatch(s, msg); quit {
			return
		}
	}
}

func (s *Session) greet() {
	s.sendServer("Welcome to " + serverName + " v" + serverVersion)
	s.sendServer("Set your nickname with NICK:<name>, or HELP for the command list")
}
