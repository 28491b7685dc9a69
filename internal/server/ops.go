// Package server exposes the operational HTTP endpoints: health checks,
// Prometheus metrics, and the WebSocket gateway.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler provides a simple health check endpoint that returns server
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "%s server is running", serverName)
}

// SetupOpsRoutes configures the operational ServeMux: health, metrics, and
// the WebSocket chat endpoint.
func SetupOpsRoutes(gateway *Gateway) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", HealthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/ws", gateway)
	return mux
}

// NewOpsServer creates the operational HTTP server with production timeout
// settings. WebSocket connections hijack the underlying conn on upgrade, so
// the read/write timeouts only bound the plain HTTP endpoints.
func NewOpsServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
