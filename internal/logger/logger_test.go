package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", false)

	log.Info().Msg("dropped")
	log.Warn().Str("slug", "promo").Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "promo", entry["slug"])
	assert.Equal(t, "warn", entry["level"])
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel("chatty"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, parseLevel(" DEBUG "))
}
