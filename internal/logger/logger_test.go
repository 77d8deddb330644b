package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	prev := Level()
	defer SetLevel(prev)

	var out bytes.Buffer
	l := New("ring", &out)

	SetLevel(LevelWarn)
	l.Infof("hidden %d", 1)
	assert.Equal(t, 0, out.Len())

	l.Warnf("shown %d", 2)
	line := out.String()
	assert.Contains(t, line, "Warn")
	assert.Contains(t, line, "shown 2")
	assert.Contains(t, line, "ring")
	assert.Contains(t, line, "logger_test.go:")
	assert.True(t, strings.HasSuffix(line, "\n"))

	out.Reset()
	SetLevel(LevelNoPrint)
	l.Errorf("nothing")
	assert.Equal(t, 0, out.Len())
}

func TestSetLevelIgnoresOutOfRange(t *testing.T) {
	prev := Level()
	defer SetLevel(prev)

	SetLevel(LevelDebug)
	SetLevel(LevelNoPrint + 1)
	SetLevel(-1)
	assert.Equal(t, LevelDebug, Level())
}
