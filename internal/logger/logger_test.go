package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	defer Setup(os.Stderr, false)

	var buf bytes.Buffer
	Setup(&buf, false)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	Setup(&buf, true)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	log.Debug().Msg("details")
	assert.Contains(t, buf.String(), "details")
}

func TestStackTracerMessage(t *testing.T) {
	err := errors.Wrap(errors.New("boom"), "outer")
	assert.Contains(t, StackTracerMessage(err), "TestStackTracerMessage")
	assert.Empty(t, StackTracerMessage(nil))
}
