package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	messagesReceived *prometheus.CounterVec
	callsSent        *prometheus.CounterVec
	callTimeouts     prometheus.Counter
	remoteErrors     prometheus.Counter
	handlerErrors    *prometheus.CounterVec
	callDuration     prometheus.Histogram
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	m := &metrics{
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocpp",
			Subsystem: "engine",
			Name:      "messages_received_total",
			Help:      "Inbound frames by decoded message type.",
		}, []string{"type"}),
		callsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocpp",
			Subsystem: "engine",
			Name:      "calls_sent_total",
			Help:      "Outbound calls by action.",
		}, []string{"action"}),
		callTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocpp",
			Subsystem: "engine",
			Name:      "call_timeouts_total",
			Help:      "Outbound calls that went unanswered within the deadline.",
		}),
		remoteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ocpp",
			Subsystem: "engine",
			Name:      "remote_errors_total",
			Help:      "Outbound calls answered with a CallError.",
		}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ocpp",
			Subsystem: "engine",
			Name:      "handler_errors_total",
			Help:      "Inbound calls that produced a CallError, by action.",
		}, []string{"action"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ocpp",
			Subsystem: "engine",
			Name:      "call_duration_seconds",
			Help:      "Round trip time of answered outbound calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registerer.MustRegister(m.messagesReceived, m.callsSent, m.callTimeouts,
		m.remoteErrors, m.handlerErrors, m.callDuration)
	return m
}
