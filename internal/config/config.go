package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nconklindev/csvrange/internal/render"
	"github.com/nconklindev/csvrange/internal/slicer"
	"github.com/nconklindev/csvrange/internal/types"

	"github.com/joho/godotenv"
)

const envPrefix = "CSVRANGE_"

type Config struct {
	Dir          string
	Start        int
	End          int
	LogFile      string
	MaxCellWidth int
	Verbose      bool
}

func Default() Config {
	dir, _ := os.Getwd()
	return Config{
		Dir:          dir,
		Start:        slicer.DefaultStart,
		End:          slicer.DefaultEnd,
		LogFile:      "csvrange.log",
		MaxCellWidth: render.DefaultMaxCellWidth,
	}
}

// Load returns the defaults overridden by CSVRANGE_* variables. Files are
// read with godotenv first; a missing file is not an error and variables
// already set in the environment win.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()

	if v, ok := lookup("DIR"); ok {
		cfg.Dir = v
	}
	if v, ok := lookup("LOG_FILE"); ok {
		cfg.LogFile = v
	}

	var err error
	if cfg.Start, err = intVar("START", cfg.Start); err != nil {
		return Config{}, err
	}
	if cfg.End, err = intVar("END", cfg.End); err != nil {
		return Config{}, err
	}
	if cfg.MaxCellWidth, err = intVar("MAX_CELL_WIDTH", cfg.MaxCellWidth); err != nil {
		return Config{}, err
	}
	if v, ok := lookup("VERBOSE"); ok {
		cfg.Verbose, err = strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%sVERBOSE: %w", envPrefix, err)
		}
	}

	return cfg, nil
}

// Validate applies the same rules the range inputs use.
func (c Config) Validate() error {
	if c.Start < 1 {
		return fmt.Errorf("start must be at least 1, got %d", c.Start)
	}
	if c.End <= c.Start || c.End > slicer.MaxBound {
		return fmt.Errorf("end must be greater than start (%d) and at most %d, got %d", c.Start, slicer.MaxBound, c.End)
	}
	return nil
}

func (c Config) Range() types.Range {
	return types.Range{Start: c.Start, End: c.End}
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func intVar(name string, fallback int) (int, error) {
	v, ok := lookup(name)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	return n, nil
}
