// Package zoom provides Zoom API authentication and client functionality
package zoom

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meetops/zoom-to-drive/internal/config"
)

// AccessToken represents a bearer credential obtained from the token endpoint
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ObtainedAt  time.Time `json:"-"`
}

// TokenResponse represents the response from the OAuth token endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// AuthError represents authentication-related errors. Token acquisition
// failures are fatal: the caller must abort the run.
type AuthError struct {
	Type   string
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error %s: %s (%v)", e.Type, e.Reason, e.Err)
	}
	return fmt.Sprintf("auth error %s: %s", e.Type, e.Reason)
}

// Authenticator defines the interface for Zoom API authentication
type Authenticator interface {
	// GetAccessToken returns the cached credential or acquires a new one
	GetAccessToken(ctx context.Context) (*AccessToken, error)

	// Reset clears the cached credential, forcing re-acquisition on next use
	Reset()
}

// AccountCredentialsAuth implements the account-credentials OAuth grant.
// Depending on configuration it authenticates the exchange either with a
// basic-auth header or with a signed JWT bearer assertion.
type AccountCredentialsAuth struct {
	config   config.ZoomConfig
	client   *http.Client
	tokenURL string

	mu          sync.Mutex
	cachedToken *AccessToken
}

// NewAccountCredentialsAuth creates a new account-credentials authenticator
func NewAccountCredentialsAuth(cfg config.ZoomConfig) *AccountCredentialsAuth {
	return &AccountCredentialsAuth{
		config:   cfg,
		tokenURL: "https://zoom.us/oauth/token",
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetTokenURL overrides the token endpoint (mainly for testing)
func (a *AccountCredentialsAuth) SetTokenURL(tokenURL string) {
	a.tokenURL = tokenURL
}

// GetAccessToken obtains an access token via the account-credentials grant.
// The token is cached for the lifetime of the process; there is no expiry
// tracking, Reset clears the cache.
func (a *AccountCredentialsAuth) GetAccessToken(ctx context.Context) (*AccessToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cachedToken != nil {
		return a.cachedToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "account_credentials")
	data.Set("account_id", a.config.AccountID)

	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &AuthError{
			Type:   "request_creation",
			Reason: "failed to create OAuth request",
			Err:    err,
		}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	switch a.config.AuthMethod {
	case config.AuthMethodJWT:
		jwtToken, err := a.generateJWT()
		if err != nil {
			return nil, &AuthError{
				Type:   "jwt_generation",
				Reason: "failed to generate JWT token",
				Err:    err,
			}
		}
		req.Header.Set("Authorization", "Bearer "+jwtToken)
	default:
		encoded := base64.StdEncoding.EncodeToString([]byte(a.config.ClientID + ":" + a.config.ClientSecret))
		req.Header.Set("Authorization", "Basic "+encoded)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &AuthError{
			Type:   "request_failed",
			Reason: "failed to get access token",
			Err:    err,
		}
	}
	defer resp.Body.Close()

	var tokenResponse TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, &AuthError{
			Type:   "response_parsing",
			Reason: "failed to parse token response",
			Err:    err,
		}
	}

	if tokenResponse.Error != "" {
		return nil, &AuthError{
			Type:   tokenResponse.Error,
			Reason: tokenResponse.Reason,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{
			Type:   "http_error",
			Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, tokenResponse.Reason),
		}
	}

	if tokenResponse.AccessToken == "" {
		return nil, &AuthError{
			Type:   "missing_token",
			Reason: "token endpoint returned no access_token",
		}
	}

	tokenType := tokenResponse.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	token := &AccessToken{
		AccessToken: tokenResponse.AccessToken,
		TokenType:   tokenType,
		ObtainedAt:  time.Now(),
	}

	a.cachedToken = token
	return token, nil
}

// Reset clears the cached credential
func (a *AccountCredentialsAuth) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cachedToken = nil
}

// generateJWT generates a short-lived JWT assertion for the token exchange
func (a *AccountCredentialsAuth) generateJWT() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":      a.config.ClientID,
		"exp":      now.Add(time.Hour).Unix(),
		"iat":      now.Unix(),
		"aud":      "zoom",
		"appKey":   a.config.ClientID,
		"tokenExp": now.Add(time.Hour).Unix(),
		"alg":      "HS256",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.config.ClientSecret))
}

// AuthenticatedClient is an HTTP client that automatically adds authentication headers
type AuthenticatedClient struct {
	client *http.Client
	auth   Authenticator
}

// NewAuthenticatedClient creates an HTTP client with automatic authentication
func NewAuthenticatedClient(client *http.Client, auth Authenticator) *AuthenticatedClient {
	return &AuthenticatedClient{
		client: client,
		auth:   auth,
	}
}

// Do executes an HTTP request with automatic authentication
func (c *AuthenticatedClient) Do(req *http.Request) (*http.Response, error) {
	token, err := c.auth.GetAccessToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to get access token for request: %w", err)
	}

	req.Header.Set("Authorization", token.TokenType+" "+token.AccessToken)

	return c.client.Do(req)
}

// Client returns the underlying HTTP client
func (c *AuthenticatedClient) Client() *http.Client {
	return c.client
}
