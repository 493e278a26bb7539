package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mxprobe/mxprobe/internal/core"
	"github.com/mxprobe/mxprobe/internal/core/provider"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// FormatResult renders one verification result as a two-column table.
func (f *TableFormatter) FormatResult(result *core.CheckResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Check", "Result"})
	t.AppendRow(table.Row{"Address", result.Address})
	t.AppendRow(table.Row{"Syntax", mark(result.SyntaxValid)})
	t.AppendRow(table.Row{"MX", mark(result.HasMX)})
	if len(result.MXHosts) > 0 {
		t.AppendRow(table.Row{"MX hosts", strings.Join(result.MXHosts, "\n")})
	}
	t.AppendRow(table.Row{"SMTP reachable", mark(result.SMTPReachable)})
	if result.FailureReason != "" {
		t.AppendRow(table.Row{"Reason", result.FailureReason})
	}
	t.AppendRow(table.Row{"Elapsed", formatMillis(result.ElapsedMillis)})
	t.AppendFooter(table.Row{"", verdictLabel(result)})
	return t.Render(), nil
}

// FormatResults renders stored results, one row per address.
func (f *TableFormatter) FormatResults(results []*core.CheckResult) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Address", "Result", "DNS", "SMTP", "MX", "Elapsed", "Reason"})

	valid, shown := 0, 0
	for _, r := range results {
		if r == nil {
			continue
		}
		shown++
		if r.OverallValid {
			valid++
		}
		t.AppendRow(table.Row{
			r.Index,
			r.Address,
			verdictLabel(r),
			mark(r.HasMX),
			mark(r.SMTPReachable),
			mxSummary(r.MXHosts),
			formatMillis(r.ElapsedMillis),
			r.FailureReason,
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d/%d valid", valid, shown), "", "", "", "", ""})
	return t.Render(), nil
}

// FormatSummary renders aggregate counters of a run.
func (f *TableFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	t := newTable()
	t.SetTitle("Verification complete")
	for _, row := range summaryRows(summary) {
		t.AppendRow(table.Row{row[0], row[1]})
	}
	return t.Render(), nil
}

// FormatRuns renders stored runs.
func (f *TableFormatter) FormatRuns(runs []*core.RunRecord) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"Run", "Source", "Status", "Valid", "Total", "Started"})
	for _, run := range runs {
		if run == nil {
			continue
		}
		t.AppendRow(table.Row{
			run.RunID,
			run.Source,
			run.Status,
			run.Valid,
			run.Total,
			formatTime(run.StartedAt),
		})
	}
	return t.Render(), nil
}

// FormatProviders renders the provider catalog.
func (f *TableFormatter) FormatProviders(entries []provider.Entry) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"Provider", "Interval", "Domains"})
	for _, entry := range entries {
		t.AppendRow(table.Row{
			string(entry.Provider),
			entry.Interval.String(),
			strings.Join(entry.Domains, ", "),
		})
	}
	return t.Render(), nil
}

func summaryRows(summary *core.BatchSummary) [][2]string {
	return [][2]string{
		{"Run", summary.RunID},
		{"Total addresses", fmt.Sprintf("%d", summary.Total)},
		{"Valid", fmt.Sprintf("%d", summary.Valid)},
		{"Invalid", fmt.Sprintf("%d", summary.Invalid)},
		{"Valid rate", fmt.Sprintf("%.1f%%", summary.ValidRate())},
		{"Elapsed", fmt.Sprintf("%.1fs", summary.ElapsedSeconds)},
		{"Average", fmt.Sprintf("%.1f ms/address", summary.MillisPerAddress())},
		{"Checkpoints", fmt.Sprintf("%d", summary.Checkpoints)},
	}
}
