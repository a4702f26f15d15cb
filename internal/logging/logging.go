package logging

import (
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
)

// New builds a JSON logger writing to w. verbose lowers the level to debug.
func New(w io.Writer, verbose bool) *slog.Logger {
	var level = new(slog.LevelVar)
	switch {
	case verbose:
		level.Set(slog.LevelDebug)
	default:
		level.Set(slog.LevelInfo)
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Setup installs a logger writing to w as the slog and log default.
func Setup(w io.Writer, verbose bool) *slog.Logger {
	logger := New(w, verbose)
	slog.SetDefault(logger)
	return logger
}

// SetupFile is Setup for the TUI, where stdout belongs to the program. An
// empty path discards all logs.
func SetupFile(path string, verbose bool) (io.Closer, error) {
	if path == "" {
		Setup(io.Discard, verbose)
		return nopCloser{}, nil
	}

	f, err := tea.LogToFile(path, "csvrange")
	if err != nil {
		return nil, err
	}

	Setup(f, verbose)
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
