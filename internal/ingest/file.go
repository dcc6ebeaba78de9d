package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ecobolig/housing-energy-etl/internal/domain"
)

// FileSource reads one source table from disk, dispatching on extension:
// .xlsx goes through the workbook reader, everything else is parsed as
// semicolon-delimited text. It implements pipeline.RowSource.
type FileSource struct {
	path  string
	sheet string
}

// NewFileSource creates a source for the given path. sheet selects a
// worksheet for .xlsx files; empty means the first sheet.
func NewFileSource(path, sheet string) *FileSource {
	return &FileSource{path: path, sheet: sheet}
}

// Rows reads and parses the file.
func (s *FileSource) Rows(ctx context.Context) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: cancelled")
	}

	if strings.EqualFold(filepath.Ext(s.path), ".xlsx") {
		return ReadXLSX(s.path, XLSXOptions{SheetName: s.sheet})
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", s.path)
	}
	defer f.Close() //nolint:errcheck // read-only file

	return ReadCSV(f, CSVOptions{})
}
