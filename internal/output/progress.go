package output

import (
	"fmt"
	"strings"

	"github.com/mxprobe/mxprobe/internal/core"
)

const progressLayout = "%-30s %-12s %-8s %-8s %-8s %-20s"

// ProgressHeader returns the column header for progress lines.
func ProgressHeader() string {
	return fmt.Sprintf(progressLayout, "Address", "Result", "DNS", "SMTP", "Time", "Error")
}

// ProgressRule returns the separator printed under ProgressHeader.
func ProgressRule() string {
	return strings.Repeat("-", 80)
}

// FormatProgressLine renders one completed result as a padded line. Long
// addresses and reasons are cut to their column width.
func FormatProgressLine(result *core.CheckResult) string {
	if result == nil {
		return ""
	}
	line := fmt.Sprintf(progressLayout,
		truncate(result.Address, 30),
		verdictLabel(result),
		mark(result.HasMX),
		mark(result.SMTPReachable),
		fmt.Sprintf("%d", result.ElapsedMillis),
		truncate(result.FailureReason, 20),
	)
	return strings.TrimRight(line, " ")
}

// FormatCheckpointLine reports progress at a checkpoint.
func FormatCheckpointLine(processed, total int) string {
	pct := 0.0
	if total > 0 {
		pct = float64(processed) / float64(total) * 100
	}
	return fmt.Sprintf("Processed: %d/%d (%.1f%%)", processed, total, pct)
}
