package output

import (
	"encoding/json"

	"github.com/mxprobe/mxprobe/internal/core"
	"github.com/mxprobe/mxprobe/internal/core/provider"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

type providerView struct {
	Provider string   `json:"provider"`
	Interval string   `json:"interval"`
	Domains  []string `json:"domains"`
}

// FormatResult renders one verification result as JSON.
func (f *JSONFormatter) FormatResult(result *core.CheckResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatResults renders stored results as a JSON array.
func (f *JSONFormatter) FormatResults(results []*core.CheckResult) (string, error) {
	if results == nil {
		results = []*core.CheckResult{}
	}
	return f.marshal(results)
}

// FormatSummary renders aggregate counters as JSON.
func (f *JSONFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "", nil
	}
	return f.marshal(summary)
}

// FormatRuns renders stored runs as a JSON array.
func (f *JSONFormatter) FormatRuns(runs []*core.RunRecord) (string, error) {
	if runs == nil {
		runs = []*core.RunRecord{}
	}
	return f.marshal(runs)
}

// FormatProviders renders the provider catalog with human-readable intervals.
func (f *JSONFormatter) FormatProviders(entries []provider.Entry) (string, error) {
	views := make([]providerView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, providerView{
			Provider: string(entry.Provider),
			Interval: entry.Interval.String(),
			Domains:  entry.Domains,
		})
	}
	return f.marshal(views)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
