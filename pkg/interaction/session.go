package interaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hatrpc/hatrpc-go/pkg/log"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// ErrNoSession is returned by operations that push events to a client
// when they are called outside a remote request (for example locally).
var ErrNoSession = errors.New("no client session")

// Session is the client connection a request arrived on. Handlers use it
// to push notifications back to that client after the call returned.
type Session interface {
	// ID is stable for the lifetime of the connection.
	ID() string

	// Context is canceled when the connection closes.
	Context() context.Context

	// Notify sends a notification on the connection.
	Notify(topic string, payload any) error
}

type sessionKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session of the current request.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

type connSession struct {
	conn   Conn
	server *Server
}

func (s *connSession) ID() string {
	return s.conn.ID()
}

func (s *connSession) Context() context.Context {
	return s.conn.Context()
}

func (s *connSession) Notify(topic string, payload any) error {
	data, err := wire.EncodeNotification(&wire.Notification{Topic: topic, Payload: payload})
	if err != nil {
		return err
	}
	s.server.captureMessage(s.conn.ID(), log.DirectionOut, &log.MessageEvent{
		Type:    log.MessageTypeNotification,
		Topic:   topic,
		Payload: payload,
	})
	if err := s.conn.Send(data); err != nil {
		return fmt.Errorf("notify %s: %w", topic, err)
	}
	return nil
}

// captureEvent records a client-side message for the given service.
func captureEvent(logger log.Logger, connID, service string, dir log.Direction, msg *log.MessageEvent) {
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleClient,
		Service:      service,
		Message:      msg,
	})
}
