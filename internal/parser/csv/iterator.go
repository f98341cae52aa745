// Package csv provides a lazy, forward-only row iterator over delimited-text
// byte streams.
//
// The iterator reads the header line first and then yields one Record per
// Next call, keyed by the normalized header names. It is non-restartable:
// once a row has been consumed it cannot be replayed, and the caller owns
// closing the underlying byte stream.
//
// Field width policy: encoding/csv imposes no per-field size ceiling and the
// iterator deliberately does not add one. Source data has been observed with
// very wide fields; parsing them costs memory but never a spurious
// truncation error.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"s3tap/internal/config"
	"s3tap/internal/records"
)

// ExtraField collects cells beyond the header width, mirroring how
// database-style targets expect overflow to be preserved rather than lost.
const ExtraField = "_sdc_extra"

// Iterator yields one parsed row per Next call.
type Iterator struct {
	cr     *csv.Reader
	header []string
	line   int64
}

// NewIterator builds an iterator for one file. The header row is consumed
// immediately (BOM-stripped, whitespace-trimmed); delimiter and text
// encoding come from the table spec.
func NewIterator(r io.Reader, spec config.TableSpec) (*Iterator, error) {
	dec, err := decoderFor(spec.Encoding)
	if err != nil {
		return nil, err
	}
	if dec != nil {
		r = transform.NewReader(r, dec)
	}

	cr := csv.NewReader(r)
	cr.Comma = spec.DelimiterRune()
	cr.FieldsPerRecord = -1 // width is reconciled against the header per row
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = StripHeaderBOM(header)
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	return &Iterator{cr: cr, header: header, line: 1}, nil
}

// Header returns the normalized column names.
func (it *Iterator) Header() []string { return it.header }

// Line returns the 1-based source line of the row most recently returned by
// Next (the header is line 1).
func (it *Iterator) Line() int64 { return it.line }

// Next returns the next row keyed by header name, or io.EOF when the file is
// exhausted. Rows shorter than the header pad the missing trailing columns
// with ""; overflow cells are collected under ExtraField.
func (it *Iterator) Next() (records.Record, error) {
	rec, err := it.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	it.line++
	if err != nil {
		return nil, fmt.Errorf("parse line %d: %w", it.line, err)
	}

	row := make(records.Record, len(it.header)+1)
	for i, name := range it.header {
		if i < len(rec) {
			row[name] = rec[i]
		} else {
			row[name] = ""
		}
	}
	if len(rec) > len(it.header) {
		extra := make([]any, 0, len(rec)-len(it.header))
		for _, cell := range rec[len(it.header):] {
			extra = append(extra, cell)
		}
		row[ExtraField] = extra
	}
	return row, nil
}

// decoderFor maps a table spec encoding name to a text decoder. UTF-8 input
// needs no transformation and yields nil.
func decoderFor(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1250":
		return charmap.Windows1250.NewDecoder(), nil
	case "windows-1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}
