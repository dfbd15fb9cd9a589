package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const searchAPISource = "search_analytics"

// SearchAPIClient calls the real search-analytics query endpoint. Every
// logical endpoint (overview, queries, pages, daily) maps onto the same
// upstream query path; the endpoint name only shapes the request parameters
// chosen by the caller.
type SearchAPIClient struct {
	BaseURL string
	SiteURL string
	Client  *http.Client
	Timeout time.Duration
}

// Name identifies the provider implementation.
func (c *SearchAPIClient) Name() string {
	return searchAPISource
}

// Call performs one authenticated query against the provider.
func (c *SearchAPIClient) Call(ctx context.Context, accessToken string, endpoint string, params map[string]any) (*Response, error) {
	if c == nil {
		return nil, errors.New("search api client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(accessToken) == "" {
		return nil, &CallError{StatusCode: http.StatusUnauthorized, Message: "access token is required"}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode request params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := c.Client
	if client == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		// Timeouts and transport failures count as provider failures; the
		// breaker treats them like any non-2xx response.
		return nil, &CallError{Message: err.Error()}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CallError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &CallError{StatusCode: resp.StatusCode, Message: upstreamMessage(payload)}
	}

	return &Response{
		Data:     payload,
		RowCount: countRows(payload),
	}, nil
}

func (c *SearchAPIClient) queryURL() string {
	base := strings.TrimSuffix(c.BaseURL, "/")
	site := url.PathEscape(c.SiteURL)
	return fmt.Sprintf("%s/webmasters/v3/sites/%s/searchAnalytics/query", base, site)
}

// upstreamMessage extracts a human-readable message from an error body,
// falling back to the raw body.
func upstreamMessage(payload []byte) string {
	var decoded struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &decoded); err == nil && decoded.Error.Message != "" {
		return decoded.Error.Message
	}

	text := strings.TrimSpace(string(payload))
	if len(text) > 256 {
		text = text[:256]
	}
	return text
}

func countRows(payload []byte) int {
	var decoded struct {
		Rows []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return 0
	}
	return len(decoded.Rows)
}
