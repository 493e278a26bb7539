package tabular

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxprobe/mxprobe/internal/core"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leads.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFile(t *testing.T) {
	path := writeInput(t, "\xEF\xBB\xBFname, Email \nAda,ada@example.com\nBob\nCy,cy@example.org,extra\n")

	table, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", " Email ", "column_3"}, table.Header)
	require.Len(t, table.Rows, 3)
	for _, row := range table.Rows {
		assert.Len(t, row, 3)
	}

	addresses, err := table.Addresses("email")
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com", "", "cy@example.org"}, addresses)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoHeader)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	table, err := Read(strings.NewReader("name\nAda\n"))
	require.NoError(t, err)
	_, err = table.Addresses("email")
	require.Error(t, err)
	require.Contains(t, err.Error(), `"email"`)
}

func TestApplyPreservesColumns(t *testing.T) {
	table, err := Read(strings.NewReader("email,owner,is_valid\na@example.com,sales,stale\nb@bad,ops,stale\nc@example.com,ops,stale\n"))
	require.NoError(t, err)

	table.Apply([]*core.CheckResult{
		{
			Index:         0,
			Address:       "a@example.com",
			SyntaxValid:   true,
			HasMX:         true,
			MXHosts:       []string{"mx1.example.com", "mx2.example.com"},
			SMTPReachable: true,
			OverallValid:  true,
			ElapsedMillis: 321,
		},
		{
			Index:         1,
			Address:       "b@bad",
			FailureReason: core.ReasonInvalidFormat,
		},
		{Index: 99},
		nil,
	})

	assert.Equal(t, []string{
		"email", "owner", "is_valid",
		"syntax_valid", "has_mx", "smtp_reachable", "mx_hosts", "failure_reason", "elapsed_ms",
	}, table.Header)

	assert.Equal(t, []string{
		"a@example.com", "sales", "true",
		"true", "true", "true", "mx1.example.com,mx2.example.com", "", "321",
	}, table.Rows[0])
	assert.Equal(t, []string{
		"b@bad", "ops", "false",
		"false", "false", "false", "", "invalid format", "0",
	}, table.Rows[1])

	// Rows without a result keep their original cells.
	assert.Equal(t, []string{"c@example.com", "ops", "stale", "", "", "", "", "", ""}, table.Rows[2])
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	path := writeInput(t, "email\na@example.com\n")
	table, err := ReadFile(path)
	require.NoError(t, err)

	table.Apply([]*core.CheckResult{{Index: 0, SyntaxValid: true, FailureReason: "smtp connect failed: i/o timeout"}})
	require.NoError(t, WriteFile(path, table))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "email,syntax_valid,has_mx,smtp_reachable,mx_hosts,failure_reason,elapsed_ms,is_valid", lines[0])
	assert.Equal(t, "a@example.com,true,false,false,,smtp connect failed: i/o timeout,0,false", lines[1])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	reread, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, table.Header, reread.Header)
	assert.Equal(t, table.Rows, reread.Rows)
}

func TestSinkPersist(t *testing.T) {
	input := writeInput(t, "email\na@example.com\nb@example.com\n")
	table, err := ReadFile(input)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out", "results.csv")
	sink := &Sink{Table: table, Path: out}

	require.NoError(t, sink.Persist(context.Background(), []*core.CheckResult{{Index: 1, OverallValid: true}}))
	reread, err := ReadFile(out)
	require.NoError(t, err)
	isValid, err := reread.Column(ColumnIsValid)
	require.NoError(t, err)
	assert.Equal(t, "", reread.Rows[0][isValid])
	assert.Equal(t, "true", reread.Rows[1][isValid])

	original, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, "email\na@example.com\nb@example.com\n", string(original))

	require.Error(t, (&Sink{Path: out}).Persist(context.Background(), nil))
}
