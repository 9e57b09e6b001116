// Package connection retries establishing a connection with exponential
// backoff and jitter.
//
// The client launcher uses it for --wait: a board that is still booting
// is retried until the registry answers or the wait budget runs out.
//
//	err := connection.Wait(ctx, connection.NewBackoff(), 30*time.Second,
//	    func(ctx context.Context) error {
//	        return inv.Initialize(ctx, host, port, false)
//	    }, nil)
//
// Delays grow 250ms, 500ms, 1s, 2s, 4s and stay at 5s; each gets up to
// 25% jitter on top.
package connection
