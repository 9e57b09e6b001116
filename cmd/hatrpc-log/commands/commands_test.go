package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hatrpc/hatrpc-go/pkg/log"
	"github.com/hatrpc/hatrpc-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+log.FileExtension)

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

var ts = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func sampleEvents() []log.Event {
	invalid := wire.StatusInvalidParameter
	ok := wire.StatusSuccess
	took := 1500 * time.Microsecond
	return []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Service:      "GpioBus",
			RemoteAddr:   "192.168.1.30:51234",
			Message: &log.MessageEvent{
				Type:      log.MessageTypeRequest,
				MessageID: 7,
				Method:    "digital_write",
				Payload:   []any{uint64(3), uint64(1)},
			},
		},
		{
			Timestamp:    ts.Add(2 * time.Millisecond),
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Service:      "GpioBus",
			Message: &log.MessageEvent{
				Type:           log.MessageTypeResponse,
				MessageID:      7,
				Status:         &ok,
				Payload:        true,
				ProcessingTime: &took,
			},
		},
		{
			Timestamp:    ts.Add(3 * time.Millisecond),
			ConnectionID: "abc12345-6789-0123-4567-890abcdef012",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Service:      "GpioBus",
			Message: &log.MessageEvent{
				Type:      log.MessageTypeResponse,
				MessageID: 8,
				Status:    &invalid,
				Payload:   "Pin must be a valid number in range 0 to 31.",
			},
		},
		{
			Timestamp:    ts.Add(time.Second),
			ConnectionID: "def67890",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Service:      "Panel",
			Message: &log.MessageEvent{
				Type:    log.MessageTypeNotification,
				Topic:   "touch",
				Payload: []any{uint64(4), "press"},
			},
		},
		{
			Timestamp:    ts.Add(2 * time.Second),
			ConnectionID: "def67890",
			Layer:        log.LayerTransport,
			Category:     log.CategoryState,
			Service:      "Panel",
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				OldState: "CONNECTED",
				NewState: "CLOSED",
				Reason:   "EOF",
			},
		},
		{
			Timestamp:    ts.Add(3 * time.Second),
			ConnectionID: "def67890",
			Layer:        log.LayerTransport,
			Category:     log.CategoryError,
			Error:        &log.ErrorEventData{Layer: log.LayerTransport, Message: "frame too large", Context: "read"},
		},
	}
}

func TestRunView(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z [conn:abc12345] IN  WIRE REQUEST GpioBus",
		"  Method: digital_write",
		"  Payload: [3,1]",
		"  Peer: 192.168.1.30:51234 (SERVER)",
		"  Status: SUCCESS (0)",
		"  Duration: 1.500ms",
		"  Status: INVALID_PARAMETER (2)",
		"  Topic: touch",
		`  Payload: [4,"press"]`,
		"  CONNECTED -> CLOSED",
		"  Reason: EOF",
		"  Message: frame too large",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestRunViewFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	tests := []struct {
		name   string
		filter ViewFilter
		count  int
	}{
		{"all", ViewFilter{}, 6},
		{"service", ViewFilter{Service: "Panel"}, 2},
		{"method", ViewFilter{Method: "digital_write"}, 1},
		{"direction", ViewFilter{Direction: "out"}, 3},
		{"layer", ViewFilter{Layer: "transport"}, 2},
		{"category", ViewFilter{Category: "error"}, 1},
		{"connection", ViewFilter{ConnID: "def67890"}, 3},
		{"time", ViewFilter{TimeStart: "2026-01-28T10:15:34Z"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RunView(path, tt.filter, &buf); err != nil {
				t.Fatalf("RunView failed: %v", err)
			}
			if got := strings.Count(buf.String(), "[conn:"); got != tt.count {
				t.Errorf("events = %d, want %d", got, tt.count)
			}
		})
	}
}

func TestRunViewInvalidFilter(t *testing.T) {
	path := createTestLogFile(t, nil)
	for _, f := range []ViewFilter{
		{Layer: "session"},
		{Direction: "sideways"},
		{Category: "snapshot"},
		{TimeEnd: "yesterday"},
	} {
		if err := RunView(path, f, &bytes.Buffer{}); err == nil {
			t.Errorf("filter %+v accepted", f)
		}
	}
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 6",
		"WIRE:        4",
		"TRANSPORT:   2",
		"GpioBus.digital_write:",
		"Failed responses: 1",
		"Connections: 2",
		"[abc12345] 3 events, duration 3ms",
		"Service: GpioBus",
		"Peer: 192.168.1.30:51234",
		"Errors: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out, ViewFilter{Service: "GpioBus"}); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	var first log.Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first.Message == nil || first.Message.Method != "digital_write" {
		t.Errorf("first event = %+v", first)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out, ViewFilter{}); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 7 {
		t.Fatalf("rows = %d, want 7", len(rows))
	}
	if got := rows[3]; got[5] != "GpioBus" || got[6] != "RESPONSE" || got[9] != "INVALID_PARAMETER" {
		t.Errorf("row = %v", got)
	}

	if err := RunExport(path, "xml", "", ViewFilter{}); err == nil {
		t.Error("unknown format accepted")
	}
}
