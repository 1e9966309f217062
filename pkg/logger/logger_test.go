package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")

	log.Info("hidden")
	log.Warn("shown", "file", "/tmp/a.txt")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "/tmp/a.txt", rec["file"])
}

func TestFromContextAddsCommandID(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "json")
	ctx := WithCommandID(context.Background(), 7)

	FromContext(ctx, base).Info("indexed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.EqualValues(t, 7, rec["command_id"])
}

func TestFromContextWithoutID(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "text")

	FromContext(context.Background(), base).Info("plain")

	assert.NotContains(t, buf.String(), "command_id")
}
