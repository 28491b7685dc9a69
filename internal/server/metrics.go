// Package server registers the Prometheus instrumentation shared across the
// session, dispatch, and accept paths.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_sessions_active",
		Help: "Currently connected chat sessions",
	})

	metricSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sessions_total",
		Help: "Total accepted chat sessions",
	})

	metricSessionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_sessions_rejected_total",
		Help: "Connections refused because the server was full",
	})

	metricRoomMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_room_messages_total",
		Help: "Room messages broadcast",
	})

	metricPrivateMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_private_messages_total",
		Help: "Private messages delivered",
	})

	metricRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_rate_limited_total",
		Help: "Commands rejected by the per-session rate limiter",
	})

	metricProtocolErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_protocol_errors_total",
		Help: "Lines that failed to decode",
	})

	metricMembersDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_members_dropped_total",
		Help: "Members disconnected because their send buffer stalled",
	})
)
