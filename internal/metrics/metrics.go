// Package metrics — prometheus-коллекторы сервиса чата.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "messages_appended_total",
		Help:      "Messages appended to the message log.",
	})

	ModerationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "moderation_transitions_total",
		Help:      "Moderation state transitions by resulting status.",
	}, []string{"status"})

	PollRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "poll_requests_total",
		Help:      "Read requests from polling clients by kind.",
	}, []string{"kind"}) // messages|typing|presence

	Heartbeats = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "presence_heartbeats_total",
		Help:      "Presence heartbeat upserts.",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat",
		Name:      "ws_connections",
		Help:      "Currently open websocket connections.",
	})

	SendRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chat",
		Name:      "send_rate_limited_total",
		Help:      "Message sends rejected by the per-user rate limiter.",
	})
)
