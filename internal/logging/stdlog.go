package logging

import (
	"io"
	"log"

	"github.com/rs/zerolog"
)

// RedirectStdLog sends output from the standard library's default logger,
// which some third-party packages write to, through the given logger at the
// given level.
func RedirectStdLog(logger zerolog.Logger, level zerolog.Level) {
	log.SetFlags(0)
	log.SetPrefix("")
	if logger.GetLevel() > level {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(logger.With().Str(zerolog.LevelFieldName, level.String()).Logger())
}
