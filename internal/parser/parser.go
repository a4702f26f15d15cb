package parser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/csvrange/internal/types"

	"github.com/xuri/excelize/v2"
)

const RowDetectionLimit = 10

var (
	ErrEmptyFile       = errors.New("empty file")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var bom = []byte{0xef, 0xbb, 0xbf}

// AllowedTypes lists the extensions ReadTable understands.
var AllowedTypes = []string{".csv", ".xlsx"}

// ReadTable parses the file at path into a Table. Progress, when non-nil,
// receives the fraction of the file consumed so far; sends never block.
func ReadTable(ctx context.Context, path string, progress chan<- float64) (*types.Table, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		table *types.Table
		err   error
	)
	switch ext {
	case ".csv":
		table, err = readCSVFile(ctx, path, progress)
	case ".xlsx":
		table, err = readXLSXFile(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	if err != nil {
		return nil, err
	}

	table.Path = path
	report(progress, 1)
	return table, nil
}

func readCSVFile(ctx context.Context, path string, progress chan<- float64) (*types.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	return ReadCSV(ctx, file, info.Size(), progress)
}

// ReadCSV parses CSV from r. A leading UTF-8 BOM is dropped, quotes are
// handled leniently and rows may have any number of fields. size is only
// used to scale progress and may be zero.
func ReadCSV(ctx context.Context, r io.Reader, size int64, progress chan<- float64) (*types.Table, error) {
	br := bufio.NewReader(&ctxReader{ctx: ctx, r: r, size: size, progress: progress})

	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		if _, err := br.Discard(len(bom)); err != nil {
			return nil, err
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	return NewTable(records)
}

// NewTable splits records into header and data rows.
func NewTable(records [][]string) (*types.Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	return &types.Table{
		Header: records[0],
		Rows:   records[1:],
	}, nil
}

func readXLSXFile(ctx context.Context, path string) (*types.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	// Spreadsheets often carry a title block above the real header
	headerRowIdx := findHeaderRow(rows)

	return &types.Table{
		Header: rows[headerRowIdx],
		Rows:   rows[headerRowIdx+1:],
	}, nil
}

// findHeaderRow skips a leading title block: rows above the first row with
// at least two non-empty cells. Without such a row the header is row 0.
func findHeaderRow(rows [][]string) int {
	searchLimit := min(len(rows), RowDetectionLimit*2)

	for i := 0; i < searchLimit; i++ {
		nonEmptyCount := 0
		for _, cell := range rows[i] {
			if strings.TrimSpace(cell) != "" {
				nonEmptyCount++
			}
		}

		if nonEmptyCount >= 2 {
			return i
		}
	}

	return 0
}

func report(progress chan<- float64, p float64) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	default:
	}
}

// ctxReader stops reading once ctx is done and reports how much of size has
// been consumed.
type ctxReader struct {
	ctx      context.Context
	r        io.Reader
	size     int64
	read     int64
	progress chan<- float64
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.size > 0 {
		report(c.progress, min(float64(c.read)/float64(c.size), 1))
	}
	return n, err
}
