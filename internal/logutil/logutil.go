package logutil

import (
	"os"

	"cloud.google.com/go/compute/metadata"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ConfigureLogger wires the global zerolog logger the way tracesmith's
// command-line front end and daemons expect: Unix timestamps, caller
// info, and a console writer for interactive use. When running on GCE (or
// when the caller declares a "production" style environment) structured
// JSON with an explicit "severity" field is used instead, matching the
// conventions of log collectors that key off that field name.
func ConfigureLogger(environment string, level zerolog.Level) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(level)
	log.Logger = log.With().Caller().Stack().Logger()
	if environment == "production" || metadata.OnGCE() {
		log.Logger = log.Hook(ErrorHook{})
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// ErrorHook annotates every log event with a "severity" field carrying the
// zerolog level name, for consumption by structured log collectors.
type ErrorHook struct{}

func (h ErrorHook) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	e.Str("severity", level.String())
}

// ParseLevel is a small wrapper around zerolog.ParseLevel that falls back to
// zerolog.InfoLevel on an empty or unrecognized string, used by
// internal/config when decoding the configured log level.
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
