package invoker

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/log"
	"github.com/hatrpc/hatrpc-go/pkg/transport"
)

// conn is an outbound connection plus the goroutine draining it.
type conn struct {
	name   string
	tc     *transport.ClientConn
	client *interaction.Client
	handle any

	done    chan struct{}
	onClose func(*conn)
}

type dialConfig struct {
	connectTimeout time.Duration
	callTimeout    time.Duration
	logger         *slog.Logger
	capture        log.Logger
}

func dial(ctx context.Context, cfg dialConfig, name, host string, port int, onClose func(*conn)) (*conn, error) {
	tc, err := transport.NewClient(transport.ClientConfig{
		ConnectTimeout: cfg.connectTimeout,
		Logger:         cfg.capture,
	}).Connect(ctx, net.JoinHostPort(host, strconv.Itoa(port)), name)
	if err != nil {
		return nil, err
	}

	client := interaction.NewClient(tc)
	client.SetTimeout(cfg.callTimeout)
	client.SetLogger(cfg.logger)
	client.SetProtocolLogger(cfg.capture, tc.ID(), name)

	c := &conn{
		name:    name,
		tc:      tc,
		client:  client,
		done:    make(chan struct{}),
		onClose: onClose,
	}
	go c.drain(cfg.logger)
	return c, nil
}

func (c *conn) drain(logger *slog.Logger) {
	defer close(c.done)
	for {
		data, err := c.tc.Receive(0)
		if err != nil {
			logger.Debug("connection closed", slog.String("service", c.name), slog.Any("error", err))
			c.tc.Close()
			c.client.Close()
			if c.onClose != nil {
				c.onClose(c)
			}
			return
		}
		if err := c.client.HandleFrame(data); err != nil {
			logger.Debug("dropping frame", slog.String("service", c.name), slog.Any("error", err))
		}
	}
}

// Close closes the connection and waits for the drain goroutine.
func (c *conn) Close() error {
	err := c.tc.Close()
	<-c.done
	return err
}
