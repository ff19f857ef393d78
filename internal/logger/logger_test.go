package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOutputRedirectsAllLoggers(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	log := New("test")
	log.Info("user %d connected", 7)

	out := buf.String()
	assert.Contains(t, out, "[INFO][test]")
	assert.Contains(t, out, "user 7 connected")
}

func TestMinLevelFiltersBelow(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetMinLevel(LevelWarn)
	defer SetMinLevel(LevelInfo)

	log := New("test")
	log.Info("filtered")
	log.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "kept")
}
