package token

import (
	"fmt"
	"net/url"
	"strings"
)

// Authorizer builds provider authorization URLs carrying a signed state.
type Authorizer struct {
	AuthURL     string
	ClientID    string
	RedirectURL string
	Scopes      []string
	States      *StateCodec
}

// AuthorizationURL returns the provider consent URL for a tenant. The state
// parameter is a signed token replayed to us on the callback, which is how
// the callback is matched back to the tenant.
func (a *Authorizer) AuthorizationURL(tenantID, returnURL string) (string, error) {
	if a.AuthURL == "" || a.ClientID == "" {
		return "", fmt.Errorf("oauth client not configured")
	}

	state, err := a.States.Encode(tenantID, returnURL)
	if err != nil {
		return "", err
	}

	base, err := url.Parse(a.AuthURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	query := base.Query()
	query.Set("client_id", a.ClientID)
	query.Set("redirect_uri", a.RedirectURL)
	query.Set("response_type", "code")
	query.Set("scope", strings.Join(a.Scopes, " "))
	query.Set("access_type", "offline")
	query.Set("prompt", "consent")
	query.Set("state", state)
	base.RawQuery = query.Encode()

	return base.String(), nil
}
