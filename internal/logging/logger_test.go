package logging

import (
	"bytes"
	"encoding/json"
	"log"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/modmigrate/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("uses configured level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := newLogger(config.Config{Logging: config.Logging{Level: "warn"}}, &buf)
		require.NoError(t, err)

		logger.Info().Msg("hidden")
		logger.Warn().Msg("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
		assert.Contains(t, buf.String(), `"service":"modmigrate"`)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := newLogger(config.Config{Logging: config.Logging{Level: "loud"}}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "failed to parse log level 'loud'")
	})
}

func TestRedirectStdLog(t *testing.T) {
	writer, flags, prefix := log.Writer(), log.Flags(), log.Prefix()
	t.Cleanup(func() {
		log.SetOutput(writer)
		log.SetFlags(flags)
		log.SetPrefix(prefix)
	})

	t.Run("enabled level", func(t *testing.T) {
		var buf bytes.Buffer
		RedirectStdLog(zerolog.New(&buf).Level(zerolog.DebugLevel), zerolog.DebugLevel)

		log.Println("Loaded 2 migrations")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "Loaded 2 migrations", entry["message"])
	})

	t.Run("disabled level", func(t *testing.T) {
		var buf bytes.Buffer
		RedirectStdLog(zerolog.New(&buf).Level(zerolog.InfoLevel), zerolog.DebugLevel)

		log.Println("Loaded 2 migrations")

		assert.Empty(t, buf.String())
	})
}
