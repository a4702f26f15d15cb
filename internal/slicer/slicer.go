package slicer

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nconklindev/csvrange/internal/types"
)

const (
	// MaxBound is the largest value the range inputs accept.
	MaxBound = 999999

	DefaultStart = 1
	DefaultEnd   = 100
)

// DefaultRange is the window shown before the user touches the range inputs.
func DefaultRange() types.Range {
	return types.Range{Start: DefaultStart, End: DefaultEnd}
}

// Slice returns the header and Rows[start:end] of table.
//
// The bounds are raw offsets into the data rows with an exclusive end, so a
// "starting row number" of 1 skips the first data row. A non-positive bound
// never errors: the body comes back empty and Reason says which bound failed.
func Slice(table types.Table, start, end int) types.SliceResult {
	if start <= 0 {
		slog.Warn("invalid slice start value", "start", start)
		return types.SliceResult{Header: table.Header, Rows: [][]string{}, Reason: types.ReasonInvalidStart}
	}

	if end <= 0 {
		slog.Warn("invalid slice end value", "end", end)
		return types.SliceResult{Header: table.Header, Rows: [][]string{}, Reason: types.ReasonInvalidEnd}
	}

	if end > len(table.Rows) {
		end = len(table.Rows)
	}

	rows := [][]string{}
	if start < end {
		rows = make([][]string, end-start)
		copy(rows, table.Rows[start:end])
	}

	slog.Debug("sliced rows", "start", start, "end", end, "count", len(rows))

	return types.SliceResult{Header: table.Header, Rows: rows}
}

// ParseBound reads the leading integer of text. Empty, non-numeric and zero
// input all yield fallback. Values too large for an int come back as
// MaxBound+1 so neither Apply function accepts them.
func ParseBound(text string, fallback int) int {
	text = strings.TrimSpace(text)

	i := 0
	if i < len(text) && (text[i] == '-' || text[i] == '+') {
		i++
	}
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}

	v, err := strconv.Atoi(text[:i])
	if errors.Is(err, strconv.ErrRange) {
		return MaxBound + 1
	}
	if err != nil || v == 0 {
		return fallback
	}
	return v
}

// ApplyStart moves the start bound when 1 <= v < r.End. Otherwise r is
// returned unchanged.
func ApplyStart(r types.Range, v int) (types.Range, bool) {
	if v >= 1 && v < r.End {
		r.Start = v
		return r, true
	}
	return r, false
}

// ApplyEnd moves the end bound when r.Start < v <= MaxBound. Otherwise r is
// returned unchanged.
func ApplyEnd(r types.Range, v int) (types.Range, bool) {
	if v <= MaxBound && v > r.Start {
		r.End = v
		return r, true
	}
	return r, false
}
