package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "info", "json")
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("principal_id", "p1").Msg("login")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "login", entry["message"])
	assert.Equal(t, "p1", entry["principal_id"])
	assert.Equal(t, "ztcp-auth", entry["service"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "debug", "console")
	require.NoError(t, err)

	log.Debug().Msg("visible")
	out := buf.String()
	assert.Contains(t, out, "visible")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"), "console output must not be JSON")
}

func TestNewWithWriter_DefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, "", "json")
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNewWithWriter_InvalidLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, "loud", "json")
	require.Error(t, err)
}

func TestBootstrap(t *testing.T) {
	var buf bytes.Buffer
	boot := Bootstrap(&buf)

	boot.Debug().Msg("hidden")
	boot.Error().Str("stage", "config").Msg("startup failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "config", entry["stage"])
	assert.Equal(t, "ztcp-auth", entry["service"])
}
