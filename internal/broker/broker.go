// Package broker wraps github.com/nats-io/nats.go with the connection
// management, subject-based fan-out and inbound-injection plumbing an
// external process uses to observe and drive a connection without
// dialing the admin REST surface: one subject PublishOutbound publishes
// outbound messages to, and one subject this process subscribes on to
// accept externally submitted messages.
package broker

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// Config names the NATS server and the two subjects a Broker uses.
type Config struct {
	URL      string
	Username string
	Password string

	// OutboundSubject receives the JSON Envelope of each message passed
	// to PublishOutbound. fixcli connect does not call PublishOutbound,
	// so the connections it runs publish nothing here.
	OutboundSubject string

	// InjectSubject is subscribed for externally published messages;
	// each payload is the same JSON envelope InjectHandler expects.
	InjectSubject string
}

// Envelope is the wire shape published on OutboundSubject and expected
// on InjectSubject: the message type, the message's top-level tag/value
// pairs in field order (the instances of a dict-form message's repeating
// groups are not among them), and the raw FIX text for consumers that
// want the exact bytes.
type Envelope struct {
	MsgType string     `json:"msg_type"`
	Fields  [][2]string `json:"fields"`
	Raw     string     `json:"raw"`
}

// InjectHandler is invoked for every message received on InjectSubject.
type InjectHandler func(Envelope)

// Broker owns one NATS connection used both to publish outbound frames
// and to subscribe for inbound injection requests.
type Broker struct {
	conn          *nats.Conn
	cfg           Config
	mu            sync.Mutex
	subscriptions []*nats.Subscription
}

// Connect dials the configured NATS server. A zero-value cfg.URL
// disables the broker: Connect returns (nil, nil) and callers should
// treat a nil *Broker as "no broker configured".
func Connect(cfg Config) (*Broker, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	var opts []nats.Option
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("broker: connect to %q: %w", cfg.URL, err)
	}

	return &Broker{conn: nc, cfg: cfg}, nil
}

// PublishOutbound publishes env on the configured OutboundSubject. A nil
// Broker is a no-op, so callers can wire it unconditionally.
func (b *Broker) PublishOutbound(env Envelope) error {
	if b == nil {
		return nil
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("broker: marshal envelope: %w", err)
	}
	if err := b.conn.Publish(b.cfg.OutboundSubject, data); err != nil {
		return fmt.Errorf("broker: publish to %q: %w", b.cfg.OutboundSubject, err)
	}
	return nil
}

// SubscribeInject registers handler for messages arriving on
// InjectSubject. Malformed payloads are dropped; a well-formed submission
// missing MsgType is passed through to handler, which should reject it
// the same way internal/admin's inject endpoint does.
func (b *Broker) SubscribeInject(handler InjectHandler) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, err := b.conn.Subscribe(b.cfg.InjectSubject, func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			return
		}
		handler(env)
	})
	if err != nil {
		return fmt.Errorf("broker: subscribe to %q: %w", b.cfg.InjectSubject, err)
	}
	b.subscriptions = append(b.subscriptions, sub)
	return nil
}

// Close unsubscribes everything and closes the underlying connection.
func (b *Broker) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscriptions {
		_ = sub.Unsubscribe()
	}
	b.subscriptions = nil
	b.conn.Close()
}
