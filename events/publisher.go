// Package events publishes charge point lifecycle events to NATS so
// downstream consumers (billing, dashboards) can react without polling
// the database. Publishing is best effort: a failed or absent broker
// never blocks protocol handling.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects carrying each event kind.
const (
	SubjectBoot        = "ocpp.event.boot"
	SubjectStatus      = "ocpp.event.status"
	SubjectTransaction = "ocpp.event.transaction"
	SubjectMeter       = "ocpp.event.meter"
)

// Event is the wire form of one published event.
type Event struct {
	Kind      string    `json:"kind"`
	Shortcode string    `json:"shortcode"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Publisher emits events to a NATS connection. A nil *Publisher or a
// Publisher without a connection is a valid no-op sink.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewPublisher wraps a NATS connection. conn may be nil, yielding a
// publisher that drops everything.
func NewPublisher(conn *nats.Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Connect dials a NATS server and returns a publisher over it.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewPublisher(conn, logger), nil
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", "error", err)
	}
}

func (p *Publisher) publish(subject, kind, shortcode string, data any) {
	if p == nil || p.conn == nil {
		return
	}
	payload, err := json.Marshal(Event{
		Kind:      kind,
		Shortcode: shortcode,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		p.logger.Warn("event marshal failed", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("event publish failed", "subject", subject, "error", err)
	}
}

// Booted reports a BootNotification outcome.
func (p *Publisher) Booted(shortcode, vendor, model, status string) {
	p.publish(SubjectBoot, "booted", shortcode, map[string]string{
		"vendor": vendor,
		"model":  model,
		"status": status,
	})
}

// StatusChanged reports a connector status transition.
func (p *Publisher) StatusChanged(shortcode string, connectorID int, status, errorCode string) {
	p.publish(SubjectStatus, "status_changed", shortcode, map[string]any{
		"connectorId": connectorID,
		"status":      status,
		"errorCode":   errorCode,
	})
}

// TransactionStarted reports a new charging session.
func (p *Publisher) TransactionStarted(shortcode string, transactionID int64, connectorID int, idTag string) {
	p.publish(SubjectTransaction, "transaction_started", shortcode, map[string]any{
		"transactionId": transactionID,
		"connectorId":   connectorID,
		"idTag":         idTag,
	})
}

// TransactionStopped reports a closed charging session.
func (p *Publisher) TransactionStopped(shortcode string, transactionID, meterStop int64, status, reason string) {
	p.publish(SubjectTransaction, "transaction_stopped", shortcode, map[string]any{
		"transactionId": transactionID,
		"meterStop":     meterStop,
		"status":        status,
		"reason":        reason,
	})
}

// MeterSampled reports stored meter telemetry.
func (p *Publisher) MeterSampled(shortcode string, connectorID int, samples int) {
	p.publish(SubjectMeter, "meter_sampled", shortcode, map[string]any{
		"connectorId": connectorID,
		"samples":     samples,
	})
}
