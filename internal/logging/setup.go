package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrijs2005/webapp/internal/filex"
)

// Options selects the minimum level and an optional log file. The file
// receives the same JSON records as stdout.
type Options struct {
	Level string
	File  string
}

// New builds a JSON slog logger writing to stdout and, when opts.File is set,
// appending to that file. The returned close func releases the file.
func New(opts Options) (*SlogLogger, func() error, error) {
	var out io.Writer = os.Stdout
	closeFn := func() error { return nil }

	if opts.File != "" {
		f, err := filex.OpenAppend(opts.File)
		if err != nil {
			return nil, nil, fmt.Errorf("log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closeFn = f.Close
	}

	h := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	return NewSlogLogger(slog.New(h)), closeFn, nil
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
