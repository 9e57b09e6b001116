package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatrpc/hatrpc-go/pkg/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "hatrpc-server", LogOptions{Level: "warn", Format: "json"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", slog.Int("port", 8000))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "hatrpc-server", rec["app"])
	assert.Equal(t, float64(8000), rec["port"])
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "hatrpc-client", LogOptions{Level: "debug"})
	require.NoError(t, err)

	logger.Debug("resolved", slog.String("service", "GpioBus"))
	assert.Contains(t, buf.String(), "resolved")
	assert.Contains(t, buf.String(), "GpioBus")

	_, err = NewLogger(&buf, "x", LogOptions{Format: "xml"})
	assert.Error(t, err)
}

func TestOpenCapture(t *testing.T) {
	c, err := OpenCapture("", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Nil(t, c.Logger)
	assert.NoError(t, c.Close())

	c, err = OpenCapture(CaptureStderr, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.IsType(t, &log.SlogAdapter{}, c.Logger)

	path := filepath.Join(t.TempDir(), "server"+log.FileExtension)
	c, err = OpenCapture(path, nil)
	require.NoError(t, err)
	c.Logger.Log(log.Event{Timestamp: time.Now(), ConnectionID: "abc", Service: "GpioBus"})
	require.NoError(t, c.Close())

	r, err := log.Open(path, log.Filter{})
	require.NoError(t, err)
	defer r.Close()
	events, err := r.All()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "GpioBus", events[0].Service)
}
