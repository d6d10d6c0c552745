// Package logging provides the leveled console logger and the optional
// structured log file.
//
// Console lines are human-oriented ("2006-01-02 15:04:05 [LEVEL] text") and
// colored via [term]. The --log file is a zap JSON stream: every console
// line is mirrored there, and [Logger.Event] adds machine-readable job
// records carrying structured fields.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/term"
)

// Logger provides leveled, optionally colored logging with an optional
// structured file sink. All methods are goroutine-safe.
type Logger struct {
	mu     *sync.Mutex // Shared with loggers derived by With.
	out    io.Writer   // INFO/SUCCESS/WARN/DEBUG
	errOut io.Writer   // ERROR
	sink   *zap.Logger
	file   *os.File
}

// NewLogger configures colors from cfg and opens cfg.LogFile as a JSON sink
// when set. Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)

	if cfg.LogFile == "" {
		return New(os.Stdout, os.Stderr, nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l := New(os.Stdout, os.Stderr, zap.New(FileCore(f)))
	l.file = f
	return l, nil
}

// New returns a Logger writing console lines to out (errors to errOut) and
// mirroring them into sink. A nil sink disables structured output.
func New(out, errOut io.Writer, sink *zap.Logger) *Logger {
	if sink == nil {
		sink = zap.NewNop()
	}
	return &Logger{mu: new(sync.Mutex), out: out, errOut: errOut, sink: sink}
}

// FileCore returns the JSON core used for the --log file.
func FileCore(w io.Writer) zapcore.Core {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zapcore.DebugLevel)
}

// With returns a Logger sharing this one's outputs whose structured records
// all carry fields (e.g. the batch run id).
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{mu: l.mu, out: l.out, errOut: l.errOut, sink: l.sink.With(fields...)}
}

// Close flushes the structured sink and closes the log file if one was
// opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.sink.Sync()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(level, color string, zl zapcore.Level, text string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	out := l.out
	if level == "ERROR" {
		out = l.errOut
	}

	l.mu.Lock()
	_, _ = io.WriteString(out, ts+" "+term.Paint(color, "["+level+"]")+" "+text+"\n")
	l.mu.Unlock()

	if ce := l.sink.Check(zl, text); ce != nil {
		ce.Write(zap.String("label", level))
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.line("INFO", term.Blue, zapcore.InfoLevel, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...interface{}) {
	l.line("SUCCESS", term.Green, zapcore.InfoLevel, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line("WARN", term.Yellow, zapcore.WarnLevel, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red), to the error stream.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line("ERROR", term.Red, zapcore.ErrorLevel, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only when verbose; no-op otherwise.
func (l *Logger) Debug(verbose bool, format string, args ...interface{}) {
	if !verbose {
		return
	}
	l.line("DEBUG", term.Cyan, zapcore.DebugLevel, fmt.Sprintf(format, args...))
}

// Event writes a structured record to the file sink only. Console output
// for the same event is the caller's choice of Info/Success/Error.
func (l *Logger) Event(msg string, fields ...zap.Field) {
	l.sink.Info(msg, fields...)
}
