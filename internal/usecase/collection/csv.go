package collection

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/document"
	"github.com/kailas-cloud/nosqlite/internal/domain/query"
	"github.com/kailas-cloud/nosqlite/internal/domain/value"
)

// DefaultImportBatch is the number of rows inserted per request on import.
const DefaultImportBatch = 500

// CSVOptions tunes ImportCSV.
type CSVOptions struct {
	// Columns names the fields of each record. Empty means the first
	// record is a header.
	Columns []string
	// BatchSize is the number of documents per insert request.
	BatchSize int
	Insert    InsertOptions
}

// ExportCSV writes the documents matching q to path as CSV with a header
// row, replacing the file atomically. It returns the number of data rows.
// A collection without fields exports an empty file.
func (s *Service) ExportCSV(ctx context.Context, ref Ref, path string, q query.Query) (int, error) {
	header := q.Fields
	if len(header) == 0 {
		cols, err := s.Columns(ctx, ref)
		if err != nil {
			return 0, err
		}
		header = cols
	}
	if q.RowID {
		header = append([]string{query.RowIDField}, header...)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(header) > 0 {
		if err := w.Write(header); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
	}

	n := 0
	record := make([]string, len(header))
	for doc, err := range s.Find(ctx, ref, q) {
		if err != nil {
			return 0, err
		}
		for i, f := range header {
			cell, err := formatCell(doc[f])
			if err != nil {
				return 0, fmt.Errorf("field %s: %w", f, err)
			}
			record[i] = cell
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("write row %d: %w", n, err)
		}
		n++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

// ImportCSV inserts one document per CSV record. Empty cells are omitted,
// numeric cells become int64 or float64, everything else stays text.
// It returns the number of documents inserted.
func (s *Service) ImportCSV(ctx context.Context, ref Ref, r io.Reader, opts CSVOptions) (int, error) {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultImportBatch
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header := opts.Columns
	if len(header) == 0 {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read header: %w", err)
		}
		header = append([]string(nil), rec...)
	}
	if len(header) == 0 {
		return 0, domain.NewValidation("columns", "csv header is empty")
	}
	cr.FieldsPerRecord = len(header)

	total := 0
	pending := make([]document.Document, 0, batch)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.InsertMany(ctx, ref, pending, opts.Insert); err != nil {
			return err
		}
		total += len(pending)
		pending = pending[:0]
		return nil
	}

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read record %d: %w", line, err)
		}
		doc := make(document.Document, len(rec))
		for i, cell := range rec {
			if cell == "" {
				continue
			}
			doc[header[i]] = parseCell(cell)
		}
		if len(doc) == 0 {
			continue
		}
		pending = append(pending, doc)
		if len(pending) == batch {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func formatCell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s, nil
	default:
		enc, err := value.Encode(v)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(enc), nil
	}
}

func parseCell(cell string) any {
	if !looksNumeric(cell) {
		return cell
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}

// looksNumeric excludes the spellings ParseFloat accepts besides decimal
// notation (inf, nan, hex).
func looksNumeric(s string) bool {
	digit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune("+-.eE", r):
		default:
			return false
		}
	}
	return digit
}
