// Package provider defines the search-analytics provider call contract and
// its real and mock implementations. The façade selects one implementation
// at construction time; the two are indistinguishable to callers.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Provider performs one upstream call. Implementations must honor ctx
// cancellation and surface upstream failures as *CallError so the retry
// layer can classify them.
type Provider interface {
	Call(ctx context.Context, accessToken string, endpoint string, params map[string]any) (*Response, error)
	Name() string
}

// Response is an opaque provider payload plus a row count hint for display.
type Response struct {
	Data     json.RawMessage `json:"data"`
	RowCount int             `json:"row_count"`
}

// CallError is an upstream failure carrying an HTTP-status-like code used for
// retry classification.
type CallError struct {
	StatusCode int
	Message    string
}

func (e *CallError) Error() string {
	if e == nil {
		return "provider call failed"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider call failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider call failed: %s", e.Message)
}

// RateLimited reports whether the failure is a rate-limit or quota rejection.
// Only these failures are worth retrying; anything else wastes the retry
// budget on an error that will never succeed.
func (e *CallError) RateLimited() bool {
	if e == nil {
		return false
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota")
}
