package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Event kinds.
const (
	EventJob        = "job"
	EventView       = "view"
	EventNode       = "node"
	EventCredential = "credential"
	EventPlugin     = "plugin"
	EventQueue      = "queue"
	EventBuild      = "build"
)

// Event actions.
const (
	ActionCreated  = "created"
	ActionDeleted  = "deleted"
	ActionRenamed  = "renamed"
	ActionInvoked  = "invoked"
	ActionToggled  = "toggled"
	ActionStopped  = "stopped"
	ActionCanceled = "canceled"
	ActionUpdated  = "updated"
)

// Event describes a mutation that the server accepted.
type Event struct {
	Kind   string    `json:"kind"`
	Action string    `json:"action"`
	Name   string    `json:"name"`
	URL    string    `json:"url"`
	Time   time.Time `json:"time"`
}

// EventPublisher receives events after successful mutations.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoOpPublisher drops every event.
type NoOpPublisher struct{}

// Publish implements EventPublisher.
func (NoOpPublisher) Publish(context.Context, Event) error { return nil }

// NATSConn is the subset of *nats.Conn used for publishing.
type NATSConn interface {
	Publish(subj string, data []byte) error
}

var _ NATSConn = (*nats.Conn)(nil)

// NATSPublisher publishes events as JSON to "<prefix>.<kind>.<action>".
type NATSPublisher struct {
	conn   NATSConn
	prefix string
}

// NewNATSPublisher wraps a connected *nats.Conn (or anything with the same
// Publish method). An empty prefix defaults to "jenkins".
func NewNATSPublisher(conn NATSConn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "jenkins"
	}

	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(event Event) string {
	return p.prefix + "." + event.Kind + "." + event.Action
}

// Publish implements EventPublisher.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = p.conn.Publish(p.Subject(event), data)
	if err != nil {
		return fmt.Errorf("publishing event to %s: %w", p.Subject(event), err)
	}

	return nil
}
