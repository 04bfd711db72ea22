package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestJSONOutputAndLevel(t *testing.T) {
	var buf bytes.Buffer
	SetFormat(&buf, "json")
	defer SetFormat(os.Stderr, "text")
	SetLevel(LevelInfo)

	Debug("hidden")
	assert.Zero(t, buf.Len())

	Error("write failed", errors.New("disk full"), "person", "Anna")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "write failed", rec["msg"])
	assert.Equal(t, "disk full", rec["err"])
	assert.Equal(t, "Anna", rec["person"])

	buf.Reset()
	SetLevel(LevelDebug)
	defer SetLevel(LevelInfo)
	Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
