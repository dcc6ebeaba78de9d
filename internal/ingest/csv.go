// Package ingest reads the source tables into raw records for the domain
// loaders. It owns all file and decoding concerns so the domain stays pure:
// delimiter handling, byte-order marks, and legacy single-byte encodings.
package ingest

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"

	"github.com/ecobolig/housing-energy-etl/internal/domain"
)

// CSVOptions configures the delimited-text parser.
type CSVOptions struct {
	Delimiter rune // default ';'
}

// ReadCSV parses delimited text into raw records, one per data row, keyed by
// the header row's field names. Exports that are not valid UTF-8 are decoded
// as ISO-8859-1, which covers the legacy Norwegian files.
func ReadCSV(r io.Reader, opts CSVOptions) ([]domain.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "csv: read input")
	}

	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		data, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrap(err, "csv: decode ISO-8859-1")
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = ';'
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: missing header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []domain.RawRecord
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if row, ok := toRecord(header, cells); ok {
			rows = append(rows, row)
		}
	}
}

// toRecord zips a cell slice with the header. Rows with no content at all
// are dropped; short rows keep whatever columns they have.
func toRecord(header, cells []string) (domain.RawRecord, bool) {
	row := make(domain.RawRecord, len(header))
	empty := true
	for i, name := range header {
		if name == "" || i >= len(cells) {
			continue
		}
		row[name] = cells[i]
		if strings.TrimSpace(cells[i]) != "" {
			empty = false
		}
	}
	if empty {
		return nil, false
	}
	return row, true
}
