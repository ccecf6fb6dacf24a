package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{in: "", want: LogLevelInfo},
		{in: "DEBUG", want: LogLevelDebug},
		{in: "warning", want: LogLevelWarn},
		{in: " error ", want: LogLevelError},
		{in: "verbose", want: LogLevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf, Component: "harness"})

	l.Info("dropped")
	l.Warn("harness.attempts.exhausted", "attempts", 3)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "harness.attempts.exhausted", entry["msg"])
	assert.Equal(t, "harness", entry["component"])
	assert.EqualValues(t, 3, entry["attempts"])
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := With(NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "text", Output: &buf}), "call_id", "abc")
	l.Debug("hello")
	assert.Contains(t, buf.String(), "call_id=abc")

	assert.Equal(t, NoOpLogger{}, With(NoOpLogger{}, "k", "v"))
}

func TestOrNoOp(t *testing.T) {
	assert.Equal(t, NoOpLogger{}, OrNoOp(nil))

	l := NewDefaultSlogLogger()
	assert.Same(t, l, OrNoOp(l))
}
