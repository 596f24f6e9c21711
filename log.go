package ranforest

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds a console logger tagged with component=ranforest.
// An empty or unparseable level falls back to info; a nil writer means stderr.
func NewLogger(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Str("component", "ranforest").
		Logger()
}
