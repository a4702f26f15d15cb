package session

import (
	"context"
	"log/slog"

	"github.com/nconklindev/csvrange/internal/render"
	"github.com/nconklindev/csvrange/internal/slicer"
	"github.com/nconklindev/csvrange/internal/types"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	PromptText      = "Upload a CSV file to see the results"
	PlaceholderText = "No CSV parsed yet"

	renderCacheSize = 32
)

// Display is the one thing the output area shows at any time.
type Display int

const (
	DisplayPrompt Display = iota
	DisplayPlaceholder
	DisplayTable
)

func (d Display) String() string {
	switch d {
	case DisplayPlaceholder:
		return "placeholder"
	case DisplayTable:
		return "table"
	}
	return "prompt"
}

// Loader parses the file at path into a Table.
type Loader interface {
	Load(ctx context.Context, path string, progress chan<- float64) (*types.Table, error)
}

// LoaderFunc adapts a plain function to Loader.
type LoaderFunc func(ctx context.Context, path string, progress chan<- float64) (*types.Table, error)

func (f LoaderFunc) Load(ctx context.Context, path string, progress chan<- float64) (*types.Table, error) {
	return f(ctx, path, progress)
}

type output struct {
	table  render.Table
	reason types.Reason
}

// Session ties file selection, parsing, slicing and rendering together.
//
// The parsed table lives in a single memo slot tagged with a generation.
// Select empties the slot and bumps the generation; results carrying an
// older generation are dropped. Range changes re-slice the memo and never
// re-parse. A Session is not safe for concurrent use.
type Session struct {
	rng     types.Range
	table   *types.Table
	path    string
	gen     uint64
	display Display
	err     error
	cache   *lru.Cache[types.Range, output]
}

func New(r types.Range) *Session {
	cache, _ := lru.New[types.Range, output](renderCacheSize)
	return &Session{
		rng:   r,
		cache: cache,
	}
}

func (s *Session) Range() types.Range { return s.rng }

func (s *Session) Display() Display { return s.display }

// Path is the most recently selected file, parsed or not.
func (s *Session) Path() string { return s.path }

// Err is the parse failure of the current generation, if any.
func (s *Session) Err() error { return s.err }

func (s *Session) Generation() uint64 { return s.gen }

// Table returns the memoized table.
func (s *Session) Table() (*types.Table, bool) {
	return s.table, s.table != nil
}

// Select starts a new file selection. Everything derived from the previous
// file is discarded before the new parse has a chance to complete.
func (s *Session) Select(path string) uint64 {
	s.gen++
	s.path = path
	s.table = nil
	s.err = nil
	s.display = DisplayPrompt
	s.cache.Purge()

	slog.Debug("file selected", "path", path, "generation", s.gen)
	return s.gen
}

// Loaded stores table when gen is still current.
func (s *Session) Loaded(gen uint64, table *types.Table) bool {
	if gen != s.gen {
		slog.Debug("dropping stale parse result", "generation", gen, "current", s.gen)
		return false
	}

	s.table = table
	s.display = DisplayTable
	slog.Info("file parsed", "path", s.path, "columns", len(table.Header), "rows", len(table.Rows))
	return true
}

// Failed records err when gen is still current.
func (s *Session) Failed(gen uint64, err error) bool {
	if gen != s.gen {
		return false
	}

	s.err = err
	s.display = DisplayPrompt
	slog.Error("failed to parse file", "path", s.path, "error", err)
	return true
}

// SetStart applies the start input text and reports whether the range
// changed. The output is refreshed either way.
func (s *Session) SetStart(text string) bool {
	v := slicer.ParseBound(text, slicer.DefaultStart)
	r, ok := slicer.ApplyStart(s.rng, v)
	s.rng = r
	s.refresh()
	return ok
}

// SetEnd applies the end input text and reports whether the range changed.
// The output is refreshed either way.
func (s *Session) SetEnd(text string) bool {
	v := slicer.ParseBound(text, slicer.DefaultEnd)
	r, ok := slicer.ApplyEnd(s.rng, v)
	s.rng = r
	s.refresh()
	return ok
}

func (s *Session) refresh() {
	if s.table != nil {
		s.display = DisplayTable
		return
	}
	s.display = DisplayPlaceholder
}

// Output slices and renders the memoized table for the current range. The
// returned table is shared with the render cache and must not be modified.
func (s *Session) Output() (render.Table, types.Reason, bool) {
	if s.table == nil {
		return render.Table{}, types.ReasonNone, false
	}

	if out, ok := s.cache.Get(s.rng); ok {
		return out.table, out.reason, true
	}

	res := slicer.Slice(*s.table, s.rng.Start, s.rng.End)
	out := output{table: render.Render(res.Header, res.Rows), reason: res.Reason}
	s.cache.Add(s.rng, out)

	return out.table, out.reason, true
}

// Load selects path and parses it synchronously.
func (s *Session) Load(ctx context.Context, loader Loader, path string, progress chan<- float64) error {
	if path == "" {
		slog.Warn("could not find a file")
		return nil
	}

	gen := s.Select(path)
	table, err := loader.Load(ctx, path, progress)
	if err != nil {
		s.Failed(gen, err)
		return err
	}

	s.Loaded(gen, table)
	return nil
}
