// Package logger configures the global zerolog logger used by every package.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

func init() {
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	Setup(os.Stderr, false)
}

// Setup routes the global logger to a console writer on out. Verbose enables debug
// level.
func Setup(out io.Writer, verbose bool) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
}

// StackTracerMessage renders the stack recorded by pkg/errors, one frame per line.
func StackTracerMessage(err error) string {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}

	var out string
	var st stackTracer
	if errors.As(err, &st) {
		for _, f := range st.StackTrace() {
			out += fmt.Sprintf("%+v\n", f)
		}
	}
	return out
}
