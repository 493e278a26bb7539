package output

import (
	"fmt"
	"strings"

	"github.com/mxprobe/mxprobe/internal/core"
	"github.com/mxprobe/mxprobe/internal/core/provider"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatResult renders one verification result as Markdown.
func (f *MarkdownFormatter) FormatResult(result *core.CheckResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(result.Address)))
	sb.WriteString("| Check | Result |\n")
	sb.WriteString("|-------|--------|\n")
	writeMarkdownRow(&sb, "Syntax", mark(result.SyntaxValid))
	writeMarkdownRow(&sb, "MX", mark(result.HasMX))
	if len(result.MXHosts) > 0 {
		writeMarkdownRow(&sb, "MX hosts", strings.Join(result.MXHosts, ", "))
	}
	writeMarkdownRow(&sb, "SMTP reachable", mark(result.SMTPReachable))
	if result.FailureReason != "" {
		writeMarkdownRow(&sb, "Reason", result.FailureReason)
	}
	writeMarkdownRow(&sb, "Elapsed", formatMillis(result.ElapsedMillis))
	sb.WriteString(fmt.Sprintf("\n**Result**: %s\n", verdictLabel(result)))
	return sb.String(), nil
}

// FormatResults renders stored results as Markdown.
func (f *MarkdownFormatter) FormatResults(results []*core.CheckResult) (string, error) {
	var sb strings.Builder
	sb.WriteString("| # | Address | Result | DNS | SMTP | Reason |\n")
	sb.WriteString("|---|---------|--------|-----|------|--------|\n")
	for _, r := range results {
		if r == nil {
			continue
		}
		writeMarkdownRow(&sb,
			fmt.Sprintf("%d", r.Index),
			r.Address,
			verdictLabel(r),
			mark(r.HasMX),
			mark(r.SMTPReachable),
			r.FailureReason,
		)
	}
	return sb.String(), nil
}

// FormatSummary renders aggregate counters as Markdown.
func (f *MarkdownFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("## Verification complete\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	for _, row := range summaryRows(summary) {
		writeMarkdownRow(&sb, row[0], row[1])
	}
	return sb.String(), nil
}

// FormatRuns renders stored runs as Markdown.
func (f *MarkdownFormatter) FormatRuns(runs []*core.RunRecord) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Run | Source | Status | Valid | Total | Started |\n")
	sb.WriteString("|-----|--------|--------|-------|-------|---------|\n")
	for _, run := range runs {
		if run == nil {
			continue
		}
		writeMarkdownRow(&sb,
			run.RunID,
			run.Source,
			run.Status,
			fmt.Sprintf("%d", run.Valid),
			fmt.Sprintf("%d", run.Total),
			formatTime(run.StartedAt),
		)
	}
	return sb.String(), nil
}

// FormatProviders renders the provider catalog as Markdown.
func (f *MarkdownFormatter) FormatProviders(entries []provider.Entry) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Provider | Interval | Domains |\n")
	sb.WriteString("|----------|----------|---------|\n")
	for _, entry := range entries {
		writeMarkdownRow(&sb, string(entry.Provider), entry.Interval.String(), strings.Join(entry.Domains, ", "))
	}
	return sb.String(), nil
}

func writeMarkdownRow(sb *strings.Builder, cells ...string) {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = escapeMarkdownCell(cell)
	}
	sb.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
