package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/campus-connect/pkg/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, name string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject)

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

func toMessage(msg *nats.Msg) *Message {
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: time.Now(),
		ID:        uuid.NewString(),
	}
}

// NopEventBus drops every event. Used when NATS_URL is not configured.
type NopEventBus struct{}

func (NopEventBus) Publish(context.Context, string, interface{}) error { return nil }

func (NopEventBus) Subscribe(string, func(*Message)) error { return nil }

func (NopEventBus) QueueSubscribe(string, string, func(*Message)) error { return nil }

func (NopEventBus) Close() error { return nil }

// Emit publishes and logs failures instead of returning them.
// Event delivery never decides the outcome of a request.
func Emit(ctx context.Context, p Publisher, subject string, data interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

// Event subjects
const (
	// Auth events
	OTPIssued      = "auth.otp.issued"
	LoginSucceeded = "auth.login.succeeded"

	// Role registry events
	AdminRequested = "users.admin.requested"
	AdminApproved  = "users.admin.approved"
	AdminRejected  = "users.admin.rejected"

	// Chat events, fanned out to clients by the realtime service
	RoomCreated    = "chat.room.created"
	MemberJoined   = "chat.member.joined"
	MessageCreated = "chat.message.created"
)

// Event payloads. Timestamps are epoch milliseconds to match the web client.

type OTPIssuedEvent struct {
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expires_at"`
}

type LoginSucceededEvent struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	Method string `json:"method"`
	At     int64  `json:"at"`
}

type AdminRequestedEvent struct {
	Email       string `json:"email"`
	RequestedAt int64  `json:"requested_at"`
}

type AdminDecisionEvent struct {
	Email     string `json:"email"`
	DecidedBy string `json:"decided_by"`
	At        int64  `json:"at"`
}

type RoomCreatedEvent struct {
	RoomID    string  `json:"room_id"`
	Name      string  `json:"name"`
	Label     *string `json:"label"`
	CreatedBy string  `json:"created_by"`
}

type MemberJoinedEvent struct {
	RoomID string `json:"room_id"`
	Email  string `json:"email"`
}

type MessageCreatedEvent struct {
	MessageID   string  `json:"message_id"`
	RoomID      string  `json:"room_id"`
	UserEmail   string  `json:"user_email"`
	MessageType string  `json:"message_type"`
	Content     *string `json:"content"`
	FileURL     *string `json:"file_url,omitempty"`
	CreatedAt   int64   `json:"created_at"`
}
