// Package tabular reads address lists from CSV files and writes verification
// results back as extra columns.
package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/mxprobe/mxprobe/internal/core"
)

// Result columns written back to the table.
const (
	ColumnSyntaxValid   = "syntax_valid"
	ColumnHasMX         = "has_mx"
	ColumnSMTPReachable = "smtp_reachable"
	ColumnMXHosts       = "mx_hosts"
	ColumnFailureReason = "failure_reason"
	ColumnElapsedMillis = "elapsed_ms"
	ColumnIsValid       = "is_valid"
)

// ResultColumns lists the write-back columns in output order.
var ResultColumns = []string{
	ColumnSyntaxValid,
	ColumnHasMX,
	ColumnSMTPReachable,
	ColumnMXHosts,
	ColumnFailureReason,
	ColumnElapsedMillis,
	ColumnIsValid,
}

// ErrNoHeader is returned for input without a header row.
var ErrNoHeader = errors.New("csv has no header row")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a CSV file held in memory. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadFile loads a CSV file with a header row.
func ReadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an explicit CLI argument
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
}

// Read parses CSV with a header row. Short rows are padded and long rows
// keep their extra cells under generated column names.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}

	table := &Table{Header: records[0]}
	for _, record := range records[1:] {
		for len(record) > len(table.Header) {
			table.Header = append(table.Header, fmt.Sprintf("column_%d", len(table.Header)+1))
		}
		table.Rows = append(table.Rows, record)
	}
	table.pad()
	return table, nil
}

// Column returns the index of the named column, ignoring case and
// surrounding whitespace.
func (t *Table) Column(name string) (int, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, column := range t.Header {
		if strings.ToLower(strings.TrimSpace(column)) == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %q not found", name)
}

// Addresses returns the named column in row order. Blank cells are kept so
// that result indexes match rows.
func (t *Table) Addresses(column string) ([]string, error) {
	idx, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Apply writes results into the result columns of the rows given by each
// result's Index. Missing result columns are appended to the header.
func (t *Table) Apply(results []*core.CheckResult) {
	columns := make(map[string]int, len(ResultColumns))
	for _, name := range ResultColumns {
		idx, err := t.Column(name)
		if err != nil {
			t.Header = append(t.Header, name)
			idx = len(t.Header) - 1
		}
		columns[name] = idx
	}
	t.pad()

	for _, result := range results {
		if result == nil || result.Index < 0 || result.Index >= len(t.Rows) {
			continue
		}
		row := t.Rows[result.Index]
		row[columns[ColumnSyntaxValid]] = strconv.FormatBool(result.SyntaxValid)
		row[columns[ColumnHasMX]] = strconv.FormatBool(result.HasMX)
		row[columns[ColumnSMTPReachable]] = strconv.FormatBool(result.SMTPReachable)
		row[columns[ColumnMXHosts]] = strings.Join(result.MXHosts, ",")
		row[columns[ColumnFailureReason]] = result.FailureReason
		row[columns[ColumnElapsedMillis]] = strconv.FormatInt(result.ElapsedMillis, 10)
		row[columns[ColumnIsValid]] = strconv.FormatBool(result.OverallValid)
	}
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteFile replaces path with the table. The content goes to a temporary
// file in the same directory first and is renamed over path, so readers see
// either the old or the new file.
func WriteFile(path string, t *Table) error {
	dir := filepath.Dir(path)
	// #nosec G301 -- output directories use 0755 like other CLI outputs
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // nolint:errcheck // no-op after rename

	if err := t.Write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("chmod csv: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func (t *Table) pad() {
	for i, row := range t.Rows {
		for len(row) < len(t.Header) {
			row = append(row, "")
		}
		t.Rows[i] = row
	}
}

// Sink writes the table with results applied on every checkpoint.
type Sink struct {
	Table *Table
	Path  string

	mu sync.Mutex
}

// Persist applies results and rewrites the output file.
func (s *Sink) Persist(_ context.Context, results []*core.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Table == nil {
		return errors.New("table is required")
	}
	s.Table.Apply(results)
	return WriteFile(s.Path, s.Table)
}
