package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/serpwatch/serpwatch/internal/core"
)

// TokenStore is the slice of the persistent store the manager needs for
// per-tenant credentials.
type TokenStore interface {
	GetToken(ctx context.Context, tenantID string) (*core.TokenRecord, error)
	PutToken(ctx context.Context, record *core.TokenRecord) error
	DeleteToken(ctx context.Context, tenantID string) error
}

// Manager keeps per-tenant OAuth credentials valid. A caller never receives
// a token whose expiry is within SafetyBuffer of now; such tokens are
// refreshed first. A failed refresh degrades to "no token" with a log line
// rather than an error, so callers can fall back to the mock path.
type Manager struct {
	Store TokenStore

	ClientID     string
	ClientSecret string
	TokenURL     string
	SafetyBuffer time.Duration

	Client *http.Client
	Clock  func() time.Time
	Logger *logging.Logger
}

// tokenResponse is the provider token endpoint's reply for both the
// authorization-code and refresh-token grants.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// GetValidToken returns a currently-valid access token for the tenant, or an
// empty string when none can be obtained.
func (m *Manager) GetValidToken(ctx context.Context, tenantID string) (string, error) {
	record, err := m.Store.GetToken(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", nil
	}

	now := m.now()
	if now.Add(m.safetyBuffer()).Before(record.ExpiresAt) {
		return record.AccessToken, nil
	}

	if record.RefreshToken == "" {
		m.logWarn("token expired and no refresh token stored",
			zap.String("tenant_id", tenantID))
		return "", nil
	}

	refreshed, err := m.refresh(ctx, record)
	if err != nil {
		m.logWarn("token refresh failed",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return "", nil
	}

	if err := m.Store.PutToken(ctx, refreshed); err != nil {
		m.logWarn("failed to persist refreshed token",
			zap.String("tenant_id", tenantID), zap.Error(err))
	}

	return refreshed.AccessToken, nil
}

// refresh exchanges the stored refresh token for a new pair. Providers do not
// always rotate refresh tokens, so the old one is kept when the response
// omits it.
func (m *Manager) refresh(ctx context.Context, record *core.TokenRecord) (*core.TokenRecord, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", record.RefreshToken)
	form.Set("client_id", m.ClientID)
	form.Set("client_secret", m.ClientSecret)

	resp, err := m.postForm(ctx, form)
	if err != nil {
		return nil, err
	}

	now := m.now()
	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		refreshToken = record.RefreshToken
	}
	scope := resp.Scope
	if scope == "" {
		scope = record.Scope
	}

	return &core.TokenRecord{
		TenantID:     record.TenantID,
		AccessToken:  resp.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second),
		Scope:        scope,
		UpdatedAt:    now,
	}, nil
}

// Exchange redeems an authorization code for a token pair and persists the
// resulting record for the tenant.
func (m *Manager) Exchange(ctx context.Context, tenantID, code, redirectURL string) (*core.TokenRecord, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", m.ClientID)
	form.Set("client_secret", m.ClientSecret)
	form.Set("redirect_uri", redirectURL)

	resp, err := m.postForm(ctx, form)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access token")
	}

	now := m.now()
	record := &core.TokenRecord{
		TenantID:     tenantID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second),
		Scope:        resp.Scope,
		UpdatedAt:    now,
	}

	if err := m.Store.PutToken(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (m *Manager) postForm(ctx context.Context, form url.Values) (*tokenResponse, error) {
	if m.TokenURL == "" {
		return nil, fmt.Errorf("token endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := m.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close() // nolint:errcheck // best-effort cleanup

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("token endpoint returned %d: %s", httpResp.StatusCode, truncate(string(body), 256))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	return &parsed, nil
}

// StoreTokens persists a token record for a tenant, stamping UpdatedAt.
func (m *Manager) StoreTokens(ctx context.Context, record *core.TokenRecord) error {
	if record == nil {
		return fmt.Errorf("token record is required")
	}
	record.UpdatedAt = m.now()
	return m.Store.PutToken(ctx, record)
}

// Disconnect clears the tenant's stored credentials.
func (m *Manager) Disconnect(ctx context.Context, tenantID string) error {
	return m.Store.DeleteToken(ctx, tenantID)
}

// ConnectionStatus reports whether the tenant has usable credentials and
// whether a new OAuth connection could be initiated.
func (m *Manager) ConnectionStatus(ctx context.Context, tenantID string) (*core.ConnectionStatus, error) {
	record, err := m.Store.GetToken(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	hasCreds := m.ClientID != "" && m.ClientSecret != ""
	status := &core.ConnectionStatus{
		HasProviderCredentials: hasCreds,
		CanConnect:             hasCreds,
	}

	if record != nil {
		status.Connected = record.AccessToken != ""
		expires := record.ExpiresAt
		status.ExpiresAt = &expires
	}
	return status, nil
}

func (m *Manager) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (m *Manager) safetyBuffer() time.Duration {
	if m.SafetyBuffer > 0 {
		return m.SafetyBuffer
	}
	return 5 * time.Minute
}

func (m *Manager) logWarn(msg string, fields ...zap.Field) {
	if m == nil || m.Logger == nil {
		return
	}
	m.Logger.Warn(msg, fields...)
}

func (m *Manager) now() time.Time {
	if m != nil && m.Clock != nil {
		return m.Clock()
	}
	return time.Now().UTC()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
