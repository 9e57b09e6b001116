// Package rpctest connects an interaction.Server and an interaction.Client
// in-process, so capability packages can test their remote stubs against
// their command tables without sockets.
package rpctest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
)

var loopSeq atomic.Uint32

// Loop is one simulated client connection to a handler.
type Loop struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	server *interaction.Server
	client *interaction.Client

	closeOnce sync.Once
}

// New serves handler through a fresh Loop. The loop closes when the test
// ends.
func New(t testing.TB, handler interaction.Handler) *Loop {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		id:     fmt.Sprintf("loop-%d", loopSeq.Add(1)),
		ctx:    ctx,
		cancel: cancel,
		server: interaction.NewServer("rpctest", handler),
	}
	l.client = interaction.NewClient(clientSide{l})
	t.Cleanup(l.Close)
	return l
}

// Client returns the calling side.
func (l *Loop) Client() *interaction.Client {
	return l.client
}

// Close disconnects the client, running the handler's session cleanup.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		l.server.ConnectionClosed(serverSide{l})
		l.client.Close()
	})
}

// serverSide is the connection as the server sees it.
type serverSide struct{ l *Loop }

func (s serverSide) ID() string               { return s.l.id }
func (s serverSide) Context() context.Context { return s.l.ctx }

func (s serverSide) Send(data []byte) error {
	if s.l.ctx.Err() != nil {
		return context.Canceled
	}
	return s.l.client.HandleFrame(data)
}

type clientSide struct{ l *Loop }

func (c clientSide) Send(data []byte) error {
	if c.l.ctx.Err() != nil {
		return context.Canceled
	}
	c.l.server.HandleFrame(serverSide{c.l}, data)
	return nil
}
