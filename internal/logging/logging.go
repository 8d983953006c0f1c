// Package logging builds the daemon's logger: timestamped, leveled
// lines in the form "<timestamp> - <LEVEL> - <message>" written to
// both the console and an append-mode log file. The logger is
// constructed explicitly and handed to its users; there is no ambient
// global configuration.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const timeLayout = "2006-01-02 15:04:05"

// Options configures logger construction.
type Options struct {
	// Path is the log file. The file sink appends and rotates by size.
	Path string
	// Level is the minimum level emitted.
	Level slog.Level
	// Console overrides the console sink (stdout when nil).
	Console io.Writer
}

// New returns a logger writing to both the console and the log file,
// plus a close func that releases the file sink.
func New(opts Options) (*slog.Logger, func() error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	file := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
	}

	h := &lineHandler{
		mu:    &sync.Mutex{},
		w:     io.MultiWriter(console, file),
		level: opts.Level,
	}

	return slog.New(h), file.Close
}

// lineHandler is a slog.Handler rendering one line per record:
// "<timestamp> - <LEVEL> - <message> key=value ...".
type lineHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	attrs string // preformatted attrs from WithAttrs
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	line := r.Time.Format(timeLayout) + " - " + r.Level.String() + " - " + r.Message + h.attrs
	r.Attrs(func(a slog.Attr) bool {
		line += " " + formatAttr(a)
		return true
	})
	line += "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line)
	return err
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	for _, a := range attrs {
		nh.attrs += " " + formatAttr(a)
	}
	return &nh
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	// Groups are flattened; the line format has no nesting.
	return h
}

func formatAttr(a slog.Attr) string {
	return fmt.Sprintf("%s=%v", a.Key, a.Value.Any())
}
