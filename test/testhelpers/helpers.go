// Package testhelpers provides common utilities for testing the termchat server.
//
// It contains reusable helpers shared across integration tests: starting a
// server on an ephemeral port, dialing line-protocol connections, and
// asserting on received lines with deadlines so a misbehaving server fails
// the test instead of hanging it.
package testhelpers

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/termchat/termchat/internal/server"
)

// TestConfig returns a config suitable for integration tests: ephemeral
// ports, small limits, and a generous rate limit so tests do not trip it
// by accident.
func TestConfig() server.Config {
	return server.Config{
		Host:                 "127.0.0.1",
		Port:                 0,
		OpsPort:              0,
		MaxClients:           10,
		MaxMessageLength:     500,
		MaxNicknameLength:    20,
		MaxRoomNameLength:    30,
		MaxMessagesPerMinute: 100,
		RateLimitWindow:      time.Minute,
		DefaultRooms:         []string{"general", "random", "help"},
		AutoJoinRoom:         "general",
		AllowedOrigins:       []string{"*"},
		LogLevel:             "error",
		ShutdownTimeout:      2 * time.Second,
		SendBufferSize:       64,
	}
}

// StartServer runs a chat server on an ephemeral port and registers its
// teardown with the test. Use srv.Addr() to dial it.
func StartServer(t *testing.T, cfg server.Config) *server.Server {
	t.Helper()

	srv := server.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = srv.Shutdown(2 * time.Second)
		<-done
	})
	return srv
}

// LineConn is a test-side chat connection speaking the line protocol.
type LineConn struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to the server and drains the two greeting lines.
func Dial(t *testing.T, addr string) *LineConn {
	t.Helper()

	c := DialRaw(t, addr)
	c.Expect("SERVER:")
	c.Expect("SERVER:")
	return c
}

// DialRaw connects without draining the greeting, for rejection paths where
// the server answers with an error instead of the banner.
func DialRaw(t *testing.T, addr string) *LineConn {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &LineConn{t: t, conn: conn, r: bufio.NewReader(conn)}
}

// Close terminates the connection without any protocol farewell, simulating
// an abrupt client disconnect.
func (c *LineConn) Close() {
	c.t.Helper()
	require.NoError(c.t, c.conn.Close())
}

// SendLine writes one protocol line.
func (c *LineConn) SendLine(line string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetWriteDeadline(time.Now().Add(time.Second)))
	_, err := io.WriteString(c.conn, line+"\n")
	require.NoError(c.t, err)
}

// ReadLine reads one protocol line, failing the test after a second.
func (c *LineConn) ReadLine() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(time.Second)))
	line, err := c.r.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimRight(line, "\r\n")
}

// Expect reads one line and asserts it starts with prefix. The full line is
// returned for further assertions.
func (c *LineConn) Expect(prefix string) string {
	c.t.Helper()
	line := c.ReadLine()
	require.True(c.t, strings.HasPrefix(line, prefix), "expected prefix %q, got %q", prefix, line)
	return line
}

// ExpectSilence asserts that nothing arrives within the given window.
func (c *LineConn) ExpectSilence(d time.Duration) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(d)))
	line, err := c.r.ReadString('\n')
	require.Error(c.t, err, "expected no traffic, got %q", line)
}

// ExpectEOF drains remaining lines and asserts that the server closes the
// connection within a second.
func (c *LineConn) ExpectEOF() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(time.Second)))
	for {
		_, err := c.r.ReadString('\n')
		if err != nil {
			require.ErrorIs(c.t, err, io.EOF)
			return
		}
	}
}

// Register runs the NICK handshake and drains the confirmation, auto-join
// notice, and initial user list.
func (c *LineConn) Register(nick string) {
	c.t.Helper()
	c.SendLine("NICK:" + nick)
	c.Expect("SERVER:Nickname set to " + nick)
	c.Expect("SERVER:Joined #")
	c.Expect("SERVER:Users in #")
}
