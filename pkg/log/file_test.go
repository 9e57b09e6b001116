package log

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

func writeCapture(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+FileExtension)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func TestFileLoggerRoundTrip(t *testing.T) {
	status := wire.StatusInvalidParameter
	path := writeCapture(t, []Event{
		{
			Timestamp:    time.Now(),
			ConnectionID: "conn-1",
			Layer:        LayerTransport,
			Frame:        &FrameEvent{Size: 12, Data: []byte{1, 2, 3}},
		},
		{
			Timestamp:    time.Now(),
			ConnectionID: "conn-1",
			Direction:    DirectionOut,
			Layer:        LayerWire,
			Service:      "GpioBus",
			Message: &MessageEvent{
				Type:      MessageTypeResponse,
				MessageID: 4,
				Status:    &status,
			},
		},
	})

	r, err := Open(path, Filter{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	events, err := r.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Frame == nil || events[0].Frame.Size != 12 {
		t.Errorf("frame event not preserved: %+v", events[0].Frame)
	}
	if events[1].Message == nil || events[1].Message.Status == nil || *events[1].Message.Status != status {
		t.Errorf("message status not preserved: %+v", events[1].Message)
	}
	if events[1].Service != "GpioBus" {
		t.Errorf("Service: got %q", events[1].Service)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := writeCapture(t, []Event{{ConnectionID: "a"}})

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	logger.Log(Event{ConnectionID: "b"})
	logger.Close()

	r, err := Open(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	events, _ := r.All()
	if len(events) != 2 || events[1].ConnectionID != "b" {
		t.Fatalf("events after append: %+v", events)
	}
}

func TestFileLoggerIgnoresLogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.hlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Close()
	logger.Log(Event{ConnectionID: "late"})
	if err := logger.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}

	data, _ := os.ReadFile(path)
	if len(data) != 0 {
		t.Errorf("file has %d bytes after logging on a closed logger", len(data))
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.hlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Log(Event{ConnectionID: "c", Layer: LayerWire})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	r, err := Open(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	events, err := r.All()
	if err != nil {
		t.Fatalf("capture corrupted: %v", err)
	}
	if len(events) != 200 {
		t.Errorf("got %d events, want 200", len(events))
	}
}

func TestReaderFilter(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStreamLogger(&buf)
	sl.Log(Event{ConnectionID: "1", Service: "Panel", Message: &MessageEvent{Method: "lcd_show"}})
	sl.Log(Event{ConnectionID: "2", Service: "Panel", StateChange: &StateChangeEvent{NewState: "CONNECTED"}})
	sl.Log(Event{ConnectionID: "3", Service: "GpioBus", Message: &MessageEvent{Method: "digitalRead"}})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"1", "2", "3"}},
		{"service", Filter{Service: "Panel"}, []string{"1", "2"}},
		{"method", Filter{Method: "digitalRead"}, []string{"3"}},
		{"connection", Filter{ConnectionID: "2"}, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(bytes.NewReader(buf.Bytes()), tt.filter)
			var got []string
			for {
				e, err := r.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Next failed: %v", err)
				}
				got = append(got, e.ConnectionID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestFilterTimeRange(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	start, end := base, base.Add(time.Minute)
	f := Filter{TimeStart: &start, TimeEnd: &end}

	if !f.Matches(Event{Timestamp: base}) {
		t.Error("start is inclusive")
	}
	if f.Matches(Event{Timestamp: end}) {
		t.Error("end is exclusive")
	}
	if f.Matches(Event{Timestamp: base.Add(-time.Second)}) {
		t.Error("event before start matched")
	}
}
