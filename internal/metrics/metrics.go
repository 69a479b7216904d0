package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuschat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campuschat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	SocketsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campuschat_sockets_connected",
			Help: "Currently connected websocket clients",
		},
	)

	SocketEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuschat_socket_events_total",
			Help: "Inbound socket events by name",
		},
		[]string{"event"},
	)

	Deliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campuschat_deliveries_total",
			Help: "Message events delivered to recipient connections",
		},
	)

	DeliveriesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuschat_deliveries_dropped_total",
			Help: "Message events not delivered",
		},
		[]string{"reason"}, // "slow_client" or "malformed"
	)

	TypingSignals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campuschat_typing_signals_total",
			Help: "Typing and stop-typing signals relayed",
		},
	)

	// Business metrics
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuschat_messages_posted_total",
			Help: "Messages persisted via REST",
		},
		[]string{"chat_type"}, // "direct" or "group"
	)

	NotificationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campuschat_notifications_created_total",
			Help: "Persisted notifications created",
		},
	)
)
