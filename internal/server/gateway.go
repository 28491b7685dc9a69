// Package server bridges WebSocket clients onto the line protocol. The
// gateway upgrades HTTP requests, enforces the configured origin allow-list,
// and adapts each websocket connection to the session transport so browser
// clients and TCP clients are indistinguishable past the accept boundary.
package server

import (
	"bytes"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/termchat/termchat/internal/protocol"
)

// Gateway terminates WebSocket upgrades for the chat server.
type Gateway struct {
	srv      *Server
	log      *slog.Logger
	upgrader websocket.Upgrader
	allowed  map[string]struct{}
	allowAll bool
}

// NewGateway builds a Gateway sharing the server's session handling and
// using its configured origin allow-list.
func NewGateway(srv *Server) *Gateway {
	g := &Gateway{srv: srv, log: srv.log.With("component", "gateway")}
	g.allowed, g.allowAll = g.normalizeOrigins(srv.cfg.AllowedOrigins)
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// ServeHTTP upgrades the request and hands the connection to the server's
// session machinery.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "WebSocket endpoint only accepts GET requests", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("upgrade failed", "error", err)
		return
	}
	// Frames beyond the cap close the connection. A framed transport has no
	// way to drain a partial line, so the over-limit recovery the byte-stream
	// path offers does not apply here.
	conn.SetReadLimit(protocol.MaxLineLength + 64)

	g.srv.startSession(&wsTransport{conn: conn})
}

func (g *Gateway) normalizeOrigins(origins []string) (map[string]struct{}, bool) {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			g.log.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		allowed[normalized] = struct{}{}
	}
	return allowed, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if g.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(r.Header.Get("Origin"))
	if !ok {
		g.log.Warn("blocked connection from unparseable origin", "origin", r.Header.Get("Origin"))
		return false
	}
	if _, exists := g.allowed[normalized]; exists {
		return true
	}
	g.log.Warn("blocked connection from disallowed origin", "origin", r.Header.Get("Origin"))
	return false
}

// wsTransport adapts a websocket connection to the session transport. Each
// inbound text message is surfaced as one newline-terminated line; each
// outbound line becomes one text message with the newline stripped.
type wsTransport struct {
	conn *websocket.Conn
	buf  []byte
	wmu  sync.Mutex
}

func (t *wsTransport) Read(p []byte) (int, error) {
	if len(t.buf) == 0 {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		t.buf = data
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	return n, nil
}

func (t *wsTransport) Write(p []byte) (int, error) {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(p, "\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *wsTransport) Close() error { return t.conn.Close() }

func (t *wsTransport) RemoteAddr() net.Addr { return t.conn.RemoteAddr() }

func (t *wsTransport) SetWriteDeadline(deadline time.Time) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	return t.conn.SetWriteDeadline(deadline)
}

var _ transport = (*wsTransport)(nil)
