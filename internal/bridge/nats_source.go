package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/colonyops/bflex/internal/core/logging"
)

// Subject maps an event name to its NATS subject: bflex:dialog under prefix
// "bflex" becomes bflex.bflex.dialog.
func Subject(prefix, name string) string {
	return prefix + "." + strings.ReplaceAll(name, ":", ".")
}

// EventName is the inverse of Subject. It reports false for subjects outside
// prefix.
func EventName(prefix, subject string) (string, bool) {
	rest, ok := strings.CutPrefix(subject, prefix+".")
	if !ok || rest == "" {
		return "", false
	}
	return strings.ReplaceAll(rest, ".", ":"), true
}

// NATSSource receives events on <prefix>.> and emits results on the same
// subject scheme. Requests with a reply subject get Message.Reply.
type NATSSource struct {
	conn   *nats.Conn
	prefix string
	log    zerolog.Logger
}

// NewNATSSource wraps an established connection.
func NewNATSSource(conn *nats.Conn, prefix string) *NATSSource {
	return &NATSSource{conn: conn, prefix: prefix, log: logging.Component("bridge.nats")}
}

// Run subscribes and blocks until ctx is done.
func (s *NATSSource) Run(ctx context.Context, handle func(context.Context, Message)) error {
	sub, err := s.conn.Subscribe(s.prefix+".>", func(m *nats.Msg) {
		handle(ctx, s.message(m))
	})
	if err != nil {
		return fmt.Errorf("subscribe %s.>: %w", s.prefix, err)
	}
	s.log.Info().Str("subject", sub.Subject).Msg("listening for bridge events")

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil && s.conn.IsConnected() {
		return fmt.Errorf("unsubscribe %s: %w", sub.Subject, err)
	}
	return nil
}

func (s *NATSSource) message(m *nats.Msg) Message {
	name, ok := EventName(s.prefix, m.Subject)
	if !ok {
		name = m.Subject
	}
	msg := Message{Name: name, Detail: m.Data}
	if m.Reply != "" {
		msg.Reply = m.Respond
	}
	return msg
}

// Emit publishes detail on the subject for name.
func (s *NATSSource) Emit(_ context.Context, name string, detail []byte) error {
	subject := Subject(s.prefix, name)
	if err := s.conn.Publish(subject, detail); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
