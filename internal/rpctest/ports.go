package rpctest

import (
	"net"
	"strconv"
	"testing"
)

// FreePortRange returns a base port such that base..base+span are all
// free on 127.0.0.1 at the time of the call.
func FreePortRange(t testing.TB, span int) int {
	t.Helper()
	for attempt := 0; attempt < 50; attempt++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		base := l.Addr().(*net.TCPAddr).Port
		held := []net.Listener{l}
		ok := base+span <= 65535
		for p := base + 1; ok && p <= base+span; p++ {
			other, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(p)))
			if err != nil {
				ok = false
				break
			}
			held = append(held, other)
		}
		for _, h := range held {
			h.Close()
		}
		if ok {
			return base
		}
	}
	t.Fatalf("no %d consecutive free ports", span+1)
	return 0
}
