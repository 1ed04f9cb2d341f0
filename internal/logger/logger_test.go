package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf})

	log.Info().Int("items", 3).Msg("catalog assembled")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "library-catalog", entry["service"])
	assert.Equal(t, "catalog assembled", entry["message"])
	assert.EqualValues(t, 3, entry["items"])
	assert.Contains(t, entry, "time")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log := New(Config{Level: "loud", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log = New(Config{Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Pretty: true, Output: &buf})

	log.Debug().Msg("visiting library")

	out := buf.String()
	assert.Contains(t, out, "visiting library")
	assert.NotContains(t, out, `"message"`)
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(Config{Output: &buf}), "loader")

	log.Info().Msg("loaded")
	assert.Contains(t, buf.String(), `"component":"loader"`)
}
