package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONUsesUTC(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, "json", false).Info("Feed parsed", "format", "rss", "entries", 3)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "Feed parsed", record["msg"])
	assert.Equal(t, "rss", record["format"])

	ts, ok := record["time"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	_, offset := parsed.Zone()
	assert.Equal(t, 0, offset)
	assert.Equal(t, 0, parsed.Nanosecond())
}

func TestNewDebugLevel(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, "text", false).Debug("hidden")
	assert.Empty(t, buf.String())

	New(&buf, "text", true).With("component", "stream").Debug("shown")
	assert.True(t, strings.Contains(buf.String(), "msg=shown"))
	assert.True(t, strings.Contains(buf.String(), "component=stream"))
}
