package output

import (
	"encoding/json"

	"github.com/serpwatch/serpwatch/internal/core"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatStatus renders a tenant status report as JSON.
func (f *JSONFormatter) FormatStatus(report *core.StatusReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.marshal(report)
}

// FormatQuota renders quota counters as JSON.
func (f *JSONFormatter) FormatQuota(counters []core.QuotaCounter) (string, error) {
	if counters == nil {
		counters = []core.QuotaCounter{}
	}
	return f.marshal(counters)
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
