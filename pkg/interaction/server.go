package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hatrpc/hatrpc-go/pkg/log"
	"github.com/hatrpc/hatrpc-go/pkg/model"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// Handler executes named operations. *model.CommandSet implements it.
type Handler interface {
	Invoke(ctx context.Context, method string, args []any) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, method string, args []any) (any, error)

// Invoke calls f.
func (f HandlerFunc) Invoke(ctx context.Context, method string, args []any) (any, error) {
	return f(ctx, method, args)
}

// SessionObserver is implemented by handlers that keep per-client state
// and must release it when the client's connection closes.
type SessionObserver interface {
	SessionClosed(s Session)
}

// Conn is the server side of one client connection.
// transport.ServerConn satisfies it.
type Conn interface {
	ID() string
	Context() context.Context
	Send(data []byte) error
}

// Server decodes requests arriving on endpoint connections, dispatches
// them to a Handler and writes the responses back.
type Server struct {
	handler Handler
	service string
	logger  *slog.Logger
	capture log.Logger
}

// NewServer creates a server dispatching into handler. service labels
// logs and capture events.
func NewServer(service string, handler Handler) *Server {
	return &Server{
		handler: handler,
		service: service,
	}
}

// SetLogger sets the operational logger. Nil disables logging.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// SetProtocolLogger sets the capture logger for decoded messages.
func (s *Server) SetProtocolLogger(logger log.Logger) {
	s.capture = logger
}

// Handler returns the handler requests are dispatched to.
func (s *Server) Handler() Handler {
	return s.handler
}

// HandleFrame processes one request frame from conn and sends the
// response. Malformed frames are logged and dropped, since there is no
// message ID to answer.
func (s *Server) HandleFrame(conn Conn, data []byte) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		s.warn("dropping malformed request", "conn_id", conn.ID(), "error", err)
		return
	}
	s.captureMessage(conn.ID(), log.DirectionIn, &log.MessageEvent{
		Type:      log.MessageTypeRequest,
		MessageID: req.MessageID,
		Method:    req.Method,
		Payload:   req.Args,
	})

	start := time.Now()
	ctx := WithSession(conn.Context(), &connSession{conn: conn, server: s})
	resp := s.HandleRequest(ctx, req)
	elapsed := time.Since(start)

	out, err := wire.EncodeResponse(resp)
	if err != nil {
		s.warn("failed to encode response", "method", req.Method, "error", err)
		out, _ = wire.EncodeResponse(errorResponse(req.MessageID, wire.StatusFailure, "unencodable result"))
	}
	status := resp.Status
	s.captureMessage(conn.ID(), log.DirectionOut, &log.MessageEvent{
		Type:           log.MessageTypeResponse,
		MessageID:      resp.MessageID,
		Status:         &status,
		Payload:        resp.Payload,
		ProcessingTime: &elapsed,
	})
	if err := conn.Send(out); err != nil {
		s.debug("failed to send response", "conn_id", conn.ID(), "error", err)
	}
}

// ConnectionClosed tells a SessionObserver handler that conn is gone.
func (s *Server) ConnectionClosed(conn Conn) {
	if obs, ok := s.handler.(SessionObserver); ok {
		obs.SessionClosed(&connSession{conn: conn, server: s})
	}
}

// HandleRequest runs one request and builds its response. A panicking
// handler yields a FAILURE response instead of killing the endpoint.
func (s *Server) HandleRequest(ctx context.Context, req *wire.Request) (resp *wire.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.warn("handler panicked", "method", req.Method, "panic", r)
			resp = errorResponse(req.MessageID, wire.StatusFailure, fmt.Sprintf("internal error in %s", req.Method))
		}
	}()

	result, err := s.handler.Invoke(ctx, req.Method, req.Args)
	if err != nil {
		s.debug("request failed", "method", req.Method, "error", err)
		return ErrorToResponse(req.MessageID, err)
	}
	return &wire.Response{
		MessageID: req.MessageID,
		Status:    wire.StatusSuccess,
		Payload:   result,
	}
}

// ErrorToResponse maps a handler error onto a wire status. The message
// of a *model.ValueError is passed through verbatim.
func ErrorToResponse(msgID uint32, err error) *wire.Response {
	var se *StatusError
	var ve *model.ValueError
	switch {
	case errors.As(err, &se):
		return errorResponse(msgID, se.Status, se.Message)
	case errors.As(err, &ve):
		return errorResponse(msgID, wire.StatusInvalidParameter, ve.Message)
	case errors.Is(err, model.ErrInvalidParameters):
		return errorResponse(msgID, wire.StatusInvalidParameter, err.Error())
	case errors.Is(err, model.ErrCommandNotFound):
		return errorResponse(msgID, wire.StatusInvalidCommand, err.Error())
	case errors.Is(err, model.ErrUnsupported):
		return errorResponse(msgID, wire.StatusUnsupported, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return errorResponse(msgID, wire.StatusTimeout, err.Error())
	default:
		return errorResponse(msgID, wire.StatusFailure, err.Error())
	}
}

func errorResponse(msgID uint32, status wire.Status, message string) *wire.Response {
	return &wire.Response{
		MessageID: msgID,
		Status:    status,
		Payload:   &wire.ErrorPayload{Message: message},
	}
}

func (s *Server) captureMessage(connID string, dir log.Direction, msg *log.MessageEvent) {
	if s.capture == nil {
		return
	}
	s.capture.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleServer,
		Service:      s.service,
		Message:      msg,
	})
}

func (s *Server) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, append(args, "service", s.service)...)
	}
}

func (s *Server) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, append(args, "service", s.service)...)
	}
}
