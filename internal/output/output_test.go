package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mxprobe/mxprobe/internal/core"
	"github.com/mxprobe/mxprobe/internal/core/provider"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func validResult() *core.CheckResult {
	return &core.CheckResult{
		Index:         0,
		Address:       "user@example.com",
		SyntaxValid:   true,
		HasMX:         true,
		MXHosts:       []string{"mx1.example.com", "mx2.example.com"},
		SMTPReachable: true,
		OverallValid:  true,
		ElapsedMillis: 612,
		CheckedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func invalidResult() *core.CheckResult {
	return &core.CheckResult{
		Index:         1,
		Address:       "someone@missing.invalid",
		SyntaxValid:   true,
		FailureKind:   core.FailureResolution,
		FailureReason: "dns resolution failed: no such host",
		ElapsedMillis: 45,
	}
}

func TestFormatProgressLine(t *testing.T) {
	line := FormatProgressLine(validResult())
	require.Equal(t, "user@example.com               ✓ valid      ✓        ✓        612", line)

	line = FormatProgressLine(invalidResult())
	require.True(t, strings.HasPrefix(line, "someone@missing.invalid        ✗ invalid    ✗        ✗        45       "))
	require.True(t, strings.HasSuffix(line, "dns resolution faile"))

	long := &core.CheckResult{Address: strings.Repeat("a", 40) + "@example.com"}
	require.True(t, strings.HasPrefix(FormatProgressLine(long), strings.Repeat("a", 30)+" "))

	require.Empty(t, FormatProgressLine(nil))
	require.Len(t, ProgressRule(), 80)
	require.True(t, strings.HasPrefix(ProgressHeader(), "Address"))
}

func TestFormatCheckpointLine(t *testing.T) {
	require.Equal(t, "Processed: 100/400 (25.0%)", FormatCheckpointLine(100, 400))
	require.Equal(t, "Processed: 0/0 (0.0%)", FormatCheckpointLine(0, 0))
}

func TestTableFormatter(t *testing.T) {
	formatter := NewFormatter(FormatTable)

	rendered, err := formatter.FormatResult(validResult())
	require.NoError(t, err)
	require.Contains(t, rendered, "user@example.com")
	require.Contains(t, rendered, "mx2.example.com")
	require.Contains(t, strings.ToUpper(rendered), "✓ VALID")

	rendered, err = formatter.FormatResults([]*core.CheckResult{validResult(), invalidResult(), nil})
	require.NoError(t, err)
	require.Contains(t, rendered, "mx1.example.com (+1)")
	require.Contains(t, rendered, "dns resolution failed: no such host")
	require.Contains(t, strings.ToUpper(rendered), "1/2 VALID")

	rendered, err = formatter.FormatSummary(&core.BatchSummary{
		RunID:          "run-1",
		Total:          4,
		Valid:          3,
		Invalid:        1,
		ElapsedSeconds: 2,
	})
	require.NoError(t, err)
	require.Contains(t, rendered, "75.0%")
	require.Contains(t, rendered, "500.0 ms/address")

	rendered, err = formatter.FormatProviders(provider.Default().Entries())
	require.NoError(t, err)
	require.Contains(t, rendered, "googlemail.com")
	require.Contains(t, rendered, "200ms")
}

func TestMarkdownFormatter(t *testing.T) {
	formatter := NewFormatter(FormatMarkdown)

	rendered, err := formatter.FormatResult(invalidResult())
	require.NoError(t, err)
	require.Contains(t, rendered, "## someone@missing.invalid")
	require.Contains(t, rendered, "| Reason | dns resolution failed: no such host |")
	require.Contains(t, rendered, "**Result**: ✗ invalid")

	finished := time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC)
	rendered, err = formatter.FormatRuns([]*core.RunRecord{{
		RunID:      "run-1",
		Source:     "a|b.csv",
		Status:     core.RunStatusComplete,
		Total:      2,
		Valid:      1,
		StartedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: &finished,
	}})
	require.NoError(t, err)
	require.Contains(t, rendered, "| run-1 | a\\|b.csv | complete | 1 | 2 | 2025-03-01T12:00:00Z |")
}

func TestJSONFormatter(t *testing.T) {
	formatter := NewFormatter(FormatJSON)

	rendered, err := formatter.FormatResult(validResult())
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "user@example.com", decoded["address"])
	require.Equal(t, true, decoded["smtp_reachable"])
	require.NotContains(t, decoded, "failure_reason")

	rendered, err = formatter.FormatRuns(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", rendered)

	rendered, err = formatter.FormatProviders([]provider.Entry{{
		Provider: "google",
		Interval: 300 * time.Millisecond,
		Domains:  []string{"gmail.com"},
	}})
	require.NoError(t, err)
	require.Contains(t, rendered, `"interval": "300ms"`)
}

func TestFormatResultsCountsRenderedRows(t *testing.T) {
	rendered, err := NewFormatter(FormatTable).FormatResults([]*core.CheckResult{nil, invalidResult(), nil})
	require.NoError(t, err)
	require.Contains(t, strings.ToUpper(rendered), "0/1 VALID")

	rendered, err = NewFormatter(FormatMarkdown).FormatResults([]*core.CheckResult{nil, validResult()})
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(rendered, "\n"))
}
