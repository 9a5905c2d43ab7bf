// Package applog configures the process logger and provides per-type
// logging adapters.
package applog

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/omarluq/storefront/internal/config"
	"github.com/omarluq/storefront/internal/di"
)

// Logger tags every entry with source=<T>.
type Logger[T any] struct {
	log zerolog.Logger
}

// For builds the adapter for T from base.
func For[T any](base zerolog.Logger) Logger[T] {
	return Logger[T]{log: base.With().Str("source", di.TypeName[T]()).Logger()}
}

// Zerolog returns the tagged logger.
func (l Logger[T]) Zerolog() zerolog.Logger { return l.log }

// Ctx returns the request logger from ctx, tagged with source, or the
// adapter's own logger when ctx has none.
func (l Logger[T]) Ctx(ctx context.Context) *zerolog.Logger {
	rl := zerolog.Ctx(ctx)
	if rl == zerolog.DefaultContextLogger || rl.GetLevel() == zerolog.Disabled {
		return &l.log
	}
	tagged := rl.With().Str("source", di.TypeName[T]()).Logger()
	return &tagged
}

// New builds the process logger from cfg. The returned closer releases a log
// file when output is a path.
func New(cfg *config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	out, closer, err := output(cfg.Output)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	var w io.Writer = out
	if wantConsole(cfg, out) {
		w = consoleWriter(out, !isTTY(out))
	}
	log := zerolog.New(w).Level(cfg.ParseLevel()).With().Timestamp().Logger()
	return log, closer, nil
}

// Configure installs log as the global zerolog logger.
func Configure(log zerolog.Logger, level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	zerolog.DefaultContextLogger = &log
}

func output(name string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(name) {
	case "", "stdout":
		return os.Stdout, nopCloser{}, nil
	case "stderr":
		return os.Stderr, nopCloser{}, nil
	default:
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, f, nil
	}
}

func wantConsole(cfg *config.LoggingConfig, out io.Writer) bool {
	switch strings.ToLower(cfg.Format) {
	case "console", "text", "pretty":
		return true
	case "json":
		return false
	}
	return cfg.Pretty || isTTY(out)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

var levelTags = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
	"fatal": "\033[35mFTL\033[0m",
	"panic": "\033[35mPNC\033[0m",
}

func consoleWriter(out io.Writer, noColor bool) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: noColor}
	cw.FormatMessage = func(i any) string {
		if i == nil {
			return ""
		}
		return fmt.Sprintf("-> %s", i)
	}
	if noColor {
		return cw
	}
	cw.FormatLevel = func(i any) string {
		lvl, _ := i.(string)
		if tag, ok := levelTags[lvl]; ok {
			return tag
		}
		return lvl
	}
	cw.FormatFieldName = func(i any) string {
		return fmt.Sprintf("\033[2m%s=\033[0m", i)
	}
	return cw
}
