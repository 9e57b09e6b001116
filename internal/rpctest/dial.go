package rpctest

import (
	"context"
	"testing"
	"time"

	"github.com/hatrpc/hatrpc-go/pkg/interaction"
	"github.com/hatrpc/hatrpc-go/pkg/transport"
)

// Dial connects to a hatrpc listener at address over TCP and returns a
// client whose frames are drained on a background goroutine. Both are
// closed when the test ends.
func Dial(t testing.TB, address string) *interaction.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := transport.NewClient(transport.DefaultClientConfig()).Connect(ctx, address, "rpctest")
	if err != nil {
		t.Fatalf("dial %s: %v", address, err)
	}
	client := interaction.NewClient(conn)
	client.SetTimeout(5 * time.Second)

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			data, err := conn.Receive(0)
			if err != nil {
				return
			}
			client.HandleFrame(data)
		}
	}()

	t.Cleanup(func() {
		conn.Close()
		<-drained
		client.Close()
	})
	return client
}
