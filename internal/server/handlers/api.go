package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/serpwatch/serpwatch/internal/core"
	"github.com/serpwatch/serpwatch/internal/core/engine"
	"github.com/serpwatch/serpwatch/internal/core/token"
	apperrors "github.com/serpwatch/serpwatch/internal/errors"
)

const (
	defaultRangeDays = 28
	maxRangeDays     = 90
	dateLayout       = "2006-01-02"
)

// metricEndpoints maps the logical endpoint names callers use to the
// search-analytics dimension each one groups by.
var metricEndpoints = map[string]string{
	"overview": "date",
	"daily":    "date",
	"queries":  "query",
	"pages":    "page",
}

// API serves the tenant-facing provider access endpoints.
type API struct {
	Fetcher     *engine.Fetcher
	Tokens      *token.Manager
	Auth        *token.Authorizer
	States      *token.StateCodec
	RedirectURL string
	Clock       func() time.Time
}

// Status serves GET /api/v1/tenants/{tenantID}/status.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("tenant id is required"))
		return
	}

	report, err := a.Fetcher.Status(r.Context(), tenantID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// metricResponse is the fetch endpoint's reply. Comparison is present only
// when the caller asked for the previous-period derivation.
type metricResponse struct {
	Endpoint   string                  `json:"endpoint"`
	Data       json.RawMessage         `json:"data"`
	Freshness  core.FreshnessInfo      `json:"freshness"`
	Comparison *core.ComparisonMetrics `json:"comparison,omitempty"`
}

// Metric serves GET /api/v1/tenants/{tenantID}/metrics/{endpoint}.
// Query parameters: days (range length, default 28), force (bypass cache),
// compare (derive period-over-period deltas).
func (a *API) Metric(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	endpoint := chi.URLParam(r, "endpoint")

	dimension, ok := metricEndpoints[endpoint]
	if !ok {
		respondWithError(w, r, apperrors.NewInvalidInputError("unknown metric endpoint: "+endpoint))
		return
	}

	days, err := parseDays(r.URL.Query().Get("days"))
	if err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError(err.Error()))
		return
	}
	force := parseBool(r.URL.Query().Get("force"))
	compare := parseBool(r.URL.Query().Get("compare"))

	end := a.now().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(days - 1))
	params := metricParams(start, end, dimension)

	result, err := a.Fetcher.Fetch(r.Context(), tenantID, endpoint, params, 0, force)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	response := metricResponse{
		Endpoint:  endpoint,
		Data:      result.Data,
		Freshness: result.Freshness,
	}

	if compare {
		comparison, err := a.compare(r, tenantID, endpoint, dimension, start, days, result)
		if err != nil {
			respondWithError(w, r, err)
			return
		}
		response.Comparison = comparison
	}

	writeJSON(w, http.StatusOK, response)
}

// compare fetches the equal-length preceding period and derives deltas. The
// previous period is cached under its own signature, so repeat comparisons
// cost no extra provider calls.
func (a *API) compare(r *http.Request, tenantID, endpoint, dimension string, start time.Time, days int, current *core.FetchResult) (*core.ComparisonMetrics, error) {
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(days - 1))

	previous, err := a.Fetcher.Fetch(r.Context(), tenantID, endpoint, metricParams(prevStart, prevEnd, dimension), 0, false)
	if err != nil {
		return nil, err
	}

	currentSeries, err := engine.ParseDailySeries(current.Data)
	if err != nil {
		return nil, err
	}
	previousSeries, err := engine.ParseDailySeries(previous.Data)
	if err != nil {
		return nil, err
	}

	comparison := engine.Compare(currentSeries, previousSeries)
	return &comparison, nil
}

// refreshRequest is the body for POST /api/v1/tenants/{tenantID}/refresh.
type refreshRequest struct {
	Endpoint string `json:"endpoint"`
	Days     int    `json:"days,omitempty"`
}

// Refresh serves POST /api/v1/tenants/{tenantID}/refresh: force-invalidate
// the cached entry and perform a forced fetch, returning updated freshness.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("invalid request body"))
		return
	}

	dimension, ok := metricEndpoints[req.Endpoint]
	if !ok {
		respondWithError(w, r, apperrors.NewInvalidInputError("unknown metric endpoint: "+req.Endpoint))
		return
	}

	days := req.Days
	if days <= 0 {
		days = defaultRangeDays
	}
	if days > maxRangeDays {
		days = maxRangeDays
	}

	end := a.now().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(days - 1))

	result, err := a.Fetcher.Refresh(r.Context(), tenantID, req.Endpoint, metricParams(start, end, dimension), 0)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, metricResponse{
		Endpoint:  req.Endpoint,
		Data:      result.Data,
		Freshness: result.Freshness,
	})
}

// ConnectionStatus serves GET /api/v1/tenants/{tenantID}/connection.
func (a *API) ConnectionStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	status, err := a.Tokens.ConnectionStatus(r.Context(), tenantID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

type connectRequest struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type connectResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// Connect serves POST /api/v1/tenants/{tenantID}/connection: starts the OAuth
// flow by returning the provider consent URL for the tenant.
func (a *API) Connect(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req connectRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, r, apperrors.NewInvalidInputError("invalid request body"))
			return
		}
	}

	authURL, err := a.Auth.AuthorizationURL(tenantID, req.ReturnURL)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, connectResponse{AuthorizationURL: authURL})
}

// Disconnect serves DELETE /api/v1/tenants/{tenantID}/connection.
func (a *API) Disconnect(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	if err := a.Tokens.Disconnect(r.Context(), tenantID); err != nil {
		respondWithError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// OAuthCallback serves GET /oauth/callback: verifies the signed state,
// redeems the authorization code and persists the tenant's tokens. When the
// state carries a return URL the browser is redirected there.
func (a *API) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		respondWithError(w, r, apperrors.NewUnauthorizedError("authorization was denied: "+providerErr))
		return
	}

	code := query.Get("code")
	if code == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("missing authorization code"))
		return
	}

	tenantID, returnURL, err := a.States.Decode(query.Get("state"))
	if err != nil {
		respondWithError(w, r, apperrors.NewUnauthorizedError("invalid or expired state token"))
		return
	}

	if _, err := a.Tokens.Exchange(r.Context(), tenantID, code, a.RedirectURL); err != nil {
		respondWithError(w, r, apperrors.WrapProviderError(r.Context(), err, "token exchange failed"))
		return
	}

	if returnURL != "" {
		http.Redirect(w, r, returnURL, http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"tenant_id": tenantID,
	})
}

func metricParams(start, end time.Time, dimension string) map[string]any {
	return map[string]any{
		"startDate":  start.Format(dateLayout),
		"endDate":    end.Format(dateLayout),
		"dimensions": []any{dimension},
		"rowLimit":   1000,
	}
}

func parseDays(raw string) (int, error) {
	if raw == "" {
		return defaultRangeDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		return 0, fmt.Errorf("days must be a positive integer")
	}
	if days > maxRangeDays {
		days = maxRangeDays
	}
	return days, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func (a *API) now() time.Time {
	if a != nil && a.Clock != nil {
		return a.Clock()
	}
	return time.Now().UTC()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
