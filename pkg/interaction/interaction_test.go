package interaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatrpc/hatrpc-go/pkg/model"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

// loopConn connects a Server and a Client in-process: frames the client
// sends are handled by the server, and everything the server sends goes
// straight back into the client.
type loopConn struct {
	id     string
	ctx    context.Context
	server *Server
	client *Client
}

func (l *loopConn) ID() string               { return l.id }
func (l *loopConn) Context() context.Context { return l.ctx }

// Send is the server's side: deliver to the client.
func (l *loopConn) Send(data []byte) error {
	return l.client.HandleFrame(data)
}

type clientSide struct{ l *loopConn }

// Send is the client's side: deliver to the server.
func (c clientSide) Send(data []byte) error {
	c.l.server.HandleFrame(c.l, data)
	return nil
}

func newLoop(t *testing.T, handler Handler) (*Client, *loopConn) {
	t.Helper()
	l := &loopConn{id: "conn-1", ctx: context.Background()}
	l.server = NewServer("test", handler)
	l.client = NewClient(clientSide{l})
	t.Cleanup(func() { l.client.Close() })
	return l.client, l
}

func testCommands() *model.CommandSet {
	return model.NewCommandSet(
		model.NewCommand(&model.CommandMetadata{
			Name:       "digitalWrite",
			Parameters: []model.ParameterMetadata{{Name: "pin", Type: model.DataTypeInt}, {Name: "value", Type: model.DataTypeInt}},
			Result:     model.DataTypeBool,
		}, func(ctx context.Context, args model.Args) (any, error) {
			pin, err := args.Int(0)
			if err != nil {
				return nil, err
			}
			if err := model.CheckRange("Pin", pin, 0, 31); err != nil {
				return nil, err
			}
			return true, nil
		}),
		model.NewCommand(&model.CommandMetadata{Name: "humidity", Result: model.DataTypeFloat},
			func(ctx context.Context, args model.Args) (any, error) {
				return nil, nil
			}),
		model.NewCommand(&model.CommandMetadata{Name: "boom"},
			func(ctx context.Context, args model.Args) (any, error) {
				panic("kaboom")
			}),
		model.NewCommand(&model.CommandMetadata{Name: "pwm"},
			func(ctx context.Context, args model.Args) (any, error) {
				return nil, model.ErrUnsupported
			}),
		model.NewCommand(&model.CommandMetadata{Name: "subscribe"},
			func(ctx context.Context, args model.Args) (any, error) {
				s, ok := SessionFromContext(ctx)
				if !ok {
					return nil, ErrNoSession
				}
				return s.ID(), nil
			}),
	)
}

func TestCallSuccessReturnsLiteralTrue(t *testing.T) {
	client, _ := newLoop(t, testCommands())

	result, err := client.Call(context.Background(), "digitalWrite", 3, 1)
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestCallNilResult(t *testing.T) {
	client, _ := newLoop(t, testCommands())

	result, err := client.Call(context.Background(), "humidity")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestCallInvalidParameter(t *testing.T) {
	client, _ := newLoop(t, testCommands())

	_, err := client.Call(context.Background(), "digitalWrite", 99, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidParameters))
	assert.Equal(t, "Pin must be a valid number in range 0 to 31.", err.Error())

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, wire.StatusInvalidParameter, se.Status)
}

func TestCallErrorMapping(t *testing.T) {
	client, _ := newLoop(t, testCommands())
	ctx := context.Background()

	tests := []struct {
		method string
		status wire.Status
		is     error
	}{
		{"nope", wire.StatusInvalidCommand, model.ErrCommandNotFound},
		{"boom", wire.StatusFailure, model.ErrCommandFailed},
		{"pwm", wire.StatusUnsupported, model.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			_, err := client.Call(ctx, tt.method)
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.Status)
			assert.ErrorIs(t, err, tt.is)
		})
	}
}

func TestSessionInContext(t *testing.T) {
	client, _ := newLoop(t, testCommands())

	id, err := client.Call(context.Background(), "subscribe")
	require.NoError(t, err)
	assert.Equal(t, "conn-1", id)
}

func TestNotificationsDeliveredOffReader(t *testing.T) {
	var once sync.Once
	handler := HandlerFunc(func(ctx context.Context, method string, args []any) (any, error) {
		switch method {
		case "arm":
			s, _ := SessionFromContext(ctx)
			return true, s.Notify("touch", []any{1, "press"})
		case "ack":
			return "acked", nil
		}
		return nil, model.ErrCommandNotFound
	})
	client, _ := newLoop(t, handler)

	got := make(chan string, 1)
	client.OnNotification("touch", func(payload any) {
		// Issuing a call from inside a notification handler must not
		// deadlock the connection.
		res, err := client.Call(context.Background(), "ack")
		once.Do(func() {
			if err != nil {
				got <- err.Error()
				return
			}
			got <- res.(string)
		})
	})

	_, err := client.Call(context.Background(), "arm")
	require.NoError(t, err)

	select {
	case v := <-got:
		assert.Equal(t, "acked", v)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

type silentSender struct{}

func (silentSender) Send([]byte) error { return nil }

func TestCallTimeout(t *testing.T) {
	client := NewClient(silentSender{})
	defer client.Close()
	client.SetTimeout(50 * time.Millisecond)

	_, err := client.Call(context.Background(), "lcd_show")
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestCloseFailsPendingCalls(t *testing.T) {
	client := NewClient(silentSender{})

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Call(context.Background(), "lcd_show")
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		client.pendingMu.Lock()
		defer client.pendingMu.Unlock()
		return len(client.pending) == 1
	}, time.Second, 5*time.Millisecond)

	client.Close()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClientClosed)
	case <-time.After(time.Second):
		t.Fatal("pending call not released by Close")
	}

	_, err := client.Call(context.Background(), "lcd_show")
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestUnexpectedResponse(t *testing.T) {
	client := NewClient(silentSender{})
	defer client.Close()
	assert.ErrorIs(t, client.HandleResponse(&wire.Response{MessageID: 77}), ErrUnexpectedReply)
}

type observingHandler struct {
	*model.CommandSet
	closed []string
}

func (o *observingHandler) SessionClosed(s Session) {
	o.closed = append(o.closed, s.ID())
}

func TestConnectionClosedNotifiesObserver(t *testing.T) {
	h := &observingHandler{CommandSet: testCommands()}
	srv := NewServer("test", h)
	srv.ConnectionClosed(&loopConn{id: "gone", ctx: context.Background()})
	assert.Equal(t, []string{"gone"}, h.closed)

	// Handlers without state are fine too.
	NewServer("test", testCommands()).ConnectionClosed(&loopConn{id: "x", ctx: context.Background()})
}
