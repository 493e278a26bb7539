package output

import (
	"fmt"
	"time"

	"github.com/mxprobe/mxprobe/internal/core"
)

const (
	markYes = "✓"
	markNo  = "✗"
)

func mark(ok bool) string {
	if ok {
		return markYes
	}
	return markNo
}

func verdictLabel(result *core.CheckResult) string {
	if result.OverallValid {
		return markYes + " valid"
	}
	return markNo + " invalid"
}

// mxSummary shows the first host and how many follow it.
func mxSummary(hosts []string) string {
	switch len(hosts) {
	case 0:
		return ""
	case 1:
		return hosts[0]
	default:
		return fmt.Sprintf("%s (+%d)", hosts[0], len(hosts)-1)
	}
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// truncate cuts value to at most limit runes.
func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
