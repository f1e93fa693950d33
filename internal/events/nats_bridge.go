package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the subset of *nats.Conn the bridge needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSBridge republishes every dispatched event on <prefix>.<event_type>.
type NATSBridge struct {
	publisher Publisher
	prefix    string
	logger    *zap.Logger
}

// ConnectNATS dials the server with reconnect settings suitable for a long-lived service.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NewNATSBridge builds a bridge over publisher.
func NewNATSBridge(publisher Publisher, prefix string, logger *zap.Logger) *NATSBridge {
	if prefix == "" {
		prefix = "grievance"
	}
	return &NATSBridge{publisher: publisher, prefix: prefix, logger: logger}
}

// Attach subscribes the bridge to every event type on dispatcher.
func (b *NATSBridge) Attach(dispatcher Dispatcher) {
	for _, eventType := range AllEventTypes {
		dispatcher.Subscribe(eventType, b.forward)
	}
}

// Subject returns the subject an event type is published on.
func (b *NATSBridge) Subject(eventType EventType) string {
	return b.prefix + "." + string(eventType)
}

func (b *NATSBridge) forward(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.publisher.Publish(b.Subject(event.Type), payload); err != nil {
		b.logger.Warn("nats publish failed",
			zap.String("subject", b.Subject(event.Type)),
			zap.String("grievance_id", event.GrievanceID),
			zap.Error(err))
		return err
	}
	return nil
}
