package invoker

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// WatchSignals stops the invoker on SIGINT or SIGTERM. The subscription
// stays in place until the returned func is called, so a second signal is
// absorbed instead of killing the process.
func (inv *Invoker) WatchSignals(ctx context.Context) (cancel func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	ctx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				inv.logger.Info("received signal", slog.String("signal", sig.String()))
				inv.Stop()
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		stop()
		<-done
	}
}
