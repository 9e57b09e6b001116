package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hatrpc/hatrpc-go/pkg/log"
	"github.com/hatrpc/hatrpc-go/pkg/model"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// DefaultTimeout is the call timeout of a new Client.
const DefaultTimeout = 30 * time.Second

// notificationQueueSize bounds notifications waiting for delivery.
const notificationQueueSize = 64

// RequestSender sends encoded frames over a connection.
type RequestSender interface {
	Send(data []byte) error
}

// Caller issues remote calls. Capability remote stubs are written against
// it; *Client implements it.
type Caller interface {
	Call(ctx context.Context, method string, args ...any) (any, error)

	// OnNotification registers fn for notifications on topic, replacing any
	// previous registration. A nil fn removes it.
	OnNotification(topic string, fn func(payload any))
}

// Client correlates requests and responses on one connection and delivers
// notifications. Frames read from the connection are fed in through
// HandleFrame by the connection's reader goroutine.
type Client struct {
	mu sync.RWMutex

	sender  RequestSender
	timeout time.Duration
	logger  *slog.Logger

	capture log.Logger
	connID  string
	service string

	nextMsgID atomic.Uint32

	pending   map[uint32]chan *wire.Response
	pendingMu sync.Mutex

	topics map[string]func(payload any)

	// Notifications are delivered on their own goroutine so a handler may
	// issue calls on the same connection without deadlocking the reader.
	notifyCh  chan *wire.Notification
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	closed bool
}

// NewClient creates a new interaction client.
func NewClient(sender RequestSender) *Client {
	c := &Client{
		sender:   sender,
		timeout:  DefaultTimeout,
		pending:  make(map[uint32]chan *wire.Response),
		topics:   make(map[string]func(any)),
		notifyCh: make(chan *wire.Notification, notificationQueueSize),
		done:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.deliverNotifications()
	return c
}

// SetTimeout sets the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// SetLogger sets the operational logger. Nil disables logging.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// SetProtocolLogger sets the capture logger and the labels of its events.
func (c *Client) SetProtocolLogger(logger log.Logger, connID, service string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capture, c.connID, c.service = logger, connID, service
}

// OnNotification registers fn for notifications on topic.
func (c *Client) OnNotification(topic string, fn func(payload any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn == nil {
		delete(c.topics, topic)
		return
	}
	c.topics[topic] = fn
}

// Close fails every pending call with ErrClientClosed and stops
// notification delivery. It does not close the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	return nil
}

func (c *Client) nextMessageID() uint32 {
	for {
		if id := c.nextMsgID.Add(1); id != wire.NotificationMessageID {
			return id
		}
	}
}

// Call invokes method with positional args and waits for the result.
// Failure statuses come back as *StatusError.
func (c *Client) Call(ctx context.Context, method string, args ...any) (any, error) {
	req := &wire.Request{
		MessageID: c.nextMessageID(),
		Method:    method,
		Args:      args,
	}
	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Status.IsSuccess() {
		return nil, statusError(resp.Status, resp.Payload)
	}
	return resp.Payload, nil
}

func (c *Client) sendRequest(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClientClosed
	}
	timeout := c.timeout
	capture, connID, service := c.capture, c.connID, c.service
	c.mu.RUnlock()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *wire.Response, 1)
	c.pendingMu.Lock()
	c.pending[req.MessageID] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.MessageID)
		c.pendingMu.Unlock()
	}()

	captureEvent(capture, connID, service, log.DirectionOut, &log.MessageEvent{
		Type:      log.MessageTypeRequest,
		MessageID: req.MessageID,
		Method:    req.Method,
		Payload:   req.Args,
	})
	if err := c.sender.Send(data); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Method, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %s", ErrRequestTimeout, req.Method, timeout)
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrClientClosed
		}
		status := resp.Status
		captureEvent(capture, connID, service, log.DirectionIn, &log.MessageEvent{
			Type:      log.MessageTypeResponse,
			MessageID: resp.MessageID,
			Status:    &status,
			Payload:   resp.Payload,
		})
		return resp, nil
	}
}

// HandleFrame dispatches one frame read from the connection.
func (c *Client) HandleFrame(data []byte) error {
	msgType, err := wire.PeekMessageType(data)
	if err != nil {
		return err
	}
	switch msgType {
	case wire.MessageTypeResponse:
		resp, err := wire.DecodeResponse(data)
		if err != nil {
			return err
		}
		return c.HandleResponse(resp)
	case wire.MessageTypeNotification:
		notif, err := wire.DecodeNotification(data)
		if err != nil {
			return err
		}
		c.HandleNotification(notif)
		return nil
	case wire.MessageTypeControl:
		return nil
	default:
		return fmt.Errorf("%w: %s frame", ErrUnexpectedReply, msgType)
	}
}

// HandleResponse completes the pending call with the response's ID.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	ch, exists := c.pending[resp.MessageID]
	if !exists {
		return ErrUnexpectedReply
	}
	select {
	case ch <- resp:
	default:
	}
	return nil
}

// HandleNotification queues a notification for delivery. When the queue
// is full the notification is dropped and logged.
func (c *Client) HandleNotification(notif *wire.Notification) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.notifyCh <- notif:
	default:
		c.mu.RLock()
		logger := c.logger
		c.mu.RUnlock()
		if logger != nil {
			logger.Warn("notification queue full, dropping", "topic", notif.Topic)
		}
	}
}

func (c *Client) deliverNotifications() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case notif := <-c.notifyCh:
			c.mu.RLock()
			fn := c.topics[notif.Topic]
			capture, connID, service := c.capture, c.connID, c.service
			c.mu.RUnlock()

			captureEvent(capture, connID, service, log.DirectionIn, &log.MessageEvent{
				Type:    log.MessageTypeNotification,
				Topic:   notif.Topic,
				Payload: notif.Payload,
			})
			if fn != nil {
				fn(notif.Payload)
			}
		}
	}
}

// StatusError represents an error response from the server.
type StatusError struct {
	Status  wire.Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Status.String()
}

// Is maps wire statuses onto the model sentinels, so
// errors.Is(err, model.ErrInvalidParameters) holds for a remote rejection
// just as for a local one.
func (e *StatusError) Is(target error) bool {
	switch target {
	case model.ErrInvalidParameters:
		return e.Status == wire.StatusInvalidParameter
	case model.ErrCommandNotFound:
		return e.Status == wire.StatusInvalidCommand
	case model.ErrUnsupported:
		return e.Status == wire.StatusUnsupported
	case model.ErrCommandFailed:
		return e.Status == wire.StatusFailure
	}
	return false
}

func statusError(status wire.Status, payload any) error {
	return &StatusError{Status: status, Message: wire.ExtractErrorMessage(payload)}
}

var _ Caller = (*Client)(nil)
