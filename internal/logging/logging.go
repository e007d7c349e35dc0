package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a JSON logger, or a human readable console logger in dev.
func New(env, component string) zerolog.Logger {
	return newLogger(os.Stdout, env, component)
}

func newLogger(out io.Writer, env, component string) zerolog.Logger {
	if env == "dev" || env == "development" {
		out = zerolog.ConsoleWriter{Out: out}
	}
	return zerolog.New(out).With().Timestamp().Str("component", component).Logger()
}
