/*
 * Copyright (C) 2024 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
)

type Options struct {
	Verbosity string
	// Logfile, when set, receives a JSON copy of every record.
	Logfile string
}

func Level(verbosity string) slog.Level {
	switch verbosity {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelDebug // default to DEBUG if verbosity is not recognized
	}
}

// Setup installs the default logger. The returned closer flushes the log file, if any.
func Setup(o Options) (io.Closer, error) {
	level := Level(o.Verbosity)

	w := os.Stderr
	var handler slog.Handler = tint.NewHandler(w, &tint.Options{
		NoColor:   !isatty.IsTerminal(w.Fd()),
		Level:     level,
		AddSource: level < 0, //only for debugging
	})

	var closer io.Closer = io.NopCloser(nil)
	if o.Logfile != "" {
		f, err := os.OpenFile(o.Logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		closer = f
		handler = slogmulti.Fanout(handler, NewFileHandler(f, level))
	}

	slog.SetDefault(slog.New(handler))
	return closer, nil
}

func NewFileHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
