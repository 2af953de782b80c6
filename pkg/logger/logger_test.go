package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesFieldsAndCaller(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "debug", Format: "json", Output: &buf})

	WithContext(map[string]interface{}{"request_id": "abc"}).
		Info("cart updated", map[string]interface{}{"quantity": 3})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "cart updated", entry["message"])
	assert.Equal(t, "abc", entry["request_id"])
	assert.EqualValues(t, 3, entry["quantity"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "warn", Format: "json", Output: &buf})

	Debug("hidden")
	Info("hidden")
	Error("store down", errors.New("dial tcp"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	assert.Contains(t, string(lines[0]), "dial tcp")
}

func TestParseLogLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, "info", parseLogLevel("nonsense").String())
	assert.Equal(t, "debug", parseLogLevel("DEBUG").String())
}
