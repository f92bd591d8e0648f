// Package console defines how batch tools report status, progress and
// final statistics, and renders those reports to a structured logger.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Level is a console verbosity level. A message is shown when its level is
// at or below the console level.
type Level int

const (
	LevelQuiet Level = iota
	LevelError
	LevelInfo
	LevelVerbose
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelQuiet:
		return "quiet"
	case LevelError:
		return "error"
	case LevelInfo:
		return "info"
	case LevelVerbose:
		return "verbose"
	case LevelDebug:
		return "debug"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel parses a level name as produced by Level.String.
func ParseLevel(s string) (Level, error) {
	for l := LevelQuiet; l <= LevelDebug; l++ {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown console level %q", s)
}

// Stats summarises a finished run.
type Stats struct {
	Label     string
	Processed int64
	Failed    int64
	Elapsed   time.Duration
	Status    string
	Err       error
}

// Console receives the reports of a run. Implementations must be safe for
// concurrent use.
type Console interface {
	Status(level Level, msg string, args ...any)
	// Progress reports completion of label as a fraction in [0, 1].
	Progress(label string, fraction float64)
	Statistics(s Stats)
}

// Nop returns a console discarding everything.
func Nop() Console {
	return nop{}
}

type nop struct{}

func (nop) Status(Level, string, ...any) {}
func (nop) Progress(string, float64)     {}
func (nop) Statistics(Stats)             {}

// DefaultProgressInterval bounds how often progress lines are logged.
const DefaultProgressInterval = time.Second

// LogConsole writes reports to a slog.Logger.
type LogConsole struct {
	logger *slog.Logger
	level  Level

	mu        sync.Mutex
	sometimes map[string]*rate.Sometimes
	interval  time.Duration
}

// NewLogConsole returns a console logging through logger at verbosity level.
// A nil logger uses slog.Default.
func NewLogConsole(logger *slog.Logger, level Level) *LogConsole {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsole{
		logger:    logger.With("component", "console"),
		level:     level,
		sometimes: make(map[string]*rate.Sometimes),
		interval:  DefaultProgressInterval,
	}
}

// SetProgressInterval changes the minimum delay between two progress lines
// of the same label.
func (c *LogConsole) SetProgressInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.interval = d
	clear(c.sometimes)
}

func (c *LogConsole) Level() Level {
	return c.level
}

func (c *LogConsole) Status(level Level, msg string, args ...any) {
	if level == LevelQuiet || level > c.level {
		return
	}
	c.logger.Log(context.Background(), slogLevel(level), msg, args...)
}

// Progress logs at verbose level. Intermediate fractions are rate bounded;
// completion is always logged.
func (c *LogConsole) Progress(label string, fraction float64) {
	if c.level < LevelVerbose {
		return
	}

	emit := func() {
		c.logger.Info("progress", "label", label, "percent", int(fraction*100))
	}
	if fraction >= 1 {
		emit()
		return
	}
	c.limiter(label).Do(emit)
}

func (c *LogConsole) limiter(label string) *rate.Sometimes {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sometimes[label]
	if !ok {
		s = &rate.Sometimes{Interval: c.interval}
		c.sometimes[label] = s
	}
	return s
}

func (c *LogConsole) Statistics(s Stats) {
	if c.level < LevelInfo {
		return
	}

	attrs := []any{
		"label", s.Label,
		"status", s.Status,
		"processed", s.Processed,
		"failed", s.Failed,
		"elapsed", s.Elapsed,
	}
	if s.Err != nil {
		c.logger.Error("run finished", append(attrs, "error", s.Err)...)
		return
	}
	c.logger.Info("run finished", attrs...)
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
