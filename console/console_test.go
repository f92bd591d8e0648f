package console_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/davidvella/chemio/console"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsole(level console.Level) (*console.LogConsole, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return console.NewLogConsole(logger, level), &buf
}

func TestStatusLevels(t *testing.T) {
	tests := []struct {
		name    string
		console console.Level
		message console.Level
		shown   bool
	}{
		{name: "quiet hides errors", console: console.LevelQuiet, message: console.LevelError, shown: false},
		{name: "error shows errors", console: console.LevelError, message: console.LevelError, shown: true},
		{name: "error hides info", console: console.LevelError, message: console.LevelInfo, shown: false},
		{name: "verbose shows info", console: console.LevelVerbose, message: console.LevelInfo, shown: true},
		{name: "verbose hides debug", console: console.LevelVerbose, message: console.LevelDebug, shown: false},
		{name: "debug shows debug", console: console.LevelDebug, message: console.LevelDebug, shown: true},
		{name: "quiet messages never shown", console: console.LevelDebug, message: console.LevelQuiet, shown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, buf := newConsole(tt.console)
			c.Status(tt.message, "hello", "key", 1)
			assert.Equal(t, tt.shown, strings.Contains(buf.String(), "hello"))
		})
	}
}

func TestProgressRateBound(t *testing.T) {
	c, buf := newConsole(console.LevelVerbose)
	c.SetProgressInterval(time.Hour)

	for i := range 10 {
		c.Progress("count", float64(i)/10)
	}
	c.Progress("count", 1)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "label=count"))
	assert.Contains(t, out, "percent=0")
	assert.Contains(t, out, "percent=100")
}

func TestProgressHiddenBelowVerbose(t *testing.T) {
	c, buf := newConsole(console.LevelInfo)
	c.Progress("count", 1)
	assert.Empty(t, buf.String())
}

func TestStatistics(t *testing.T) {
	c, buf := newConsole(console.LevelInfo)
	c.Statistics(console.Stats{Label: "scan", Processed: 3, Failed: 1, Status: "completed"})
	assert.Contains(t, buf.String(), "processed=3")
	assert.Contains(t, buf.String(), "failed=1")

	buf.Reset()
	c.Statistics(console.Stats{Label: "scan", Status: "failed", Err: errors.New("boom")})
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "boom")
}

func TestParseLevel(t *testing.T) {
	l, err := console.ParseLevel("VERBOSE")
	require.NoError(t, err)
	assert.Equal(t, console.LevelVerbose, l)

	_, err = console.ParseLevel("loud")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	c := console.Nop()
	c.Status(console.LevelError, "x")
	c.Progress("x", 0.5)
	c.Statistics(console.Stats{})
}
