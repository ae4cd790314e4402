package intelix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

// DefaultAuthURL is the token endpoint of the analysis service.
const DefaultAuthURL = "https://api.labs.sophos.com/oauth2/token"

// Session holds the access token shared by every analysis call.
// The token is exchanged once and reused until Reset; there is no expiry handling.
type Session struct {
	mu          sync.Mutex
	credentials string
	authURL     string
	http        *http.Client
	token       string
}

// NewSession builds an unauthenticated session. credentials is the base64
// encoded "client_id:client_secret" value, sent as-is after "Basic ".
func NewSession(credentials, authURL string, httpClient *http.Client) *Session {
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Session{credentials: credentials, authURL: authURL, http: httpClient}
}

// EnsureAuthenticated returns the cached token, exchanging the credential for one
// on first use. Concurrent first callers wait on the same exchange.
func (s *Session) EnsureAuthenticated(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}
	if strings.TrimSpace(s.credentials) == "" {
		return "", fmt.Errorf("%w: missing credentials, set INTELIX_CREDENTIALS", filecheck.ErrConfiguration)
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build login request: %w", filecheck.ErrAuthentication, err)
	}
	req.Header.Set("Authorization", "Basic "+s.credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: login request: %w", filecheck.ErrAuthentication, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read login response: %w", filecheck.ErrAuthentication, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: could not login: status=%d", filecheck.ErrAuthentication, resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode login response: %w", filecheck.ErrAuthentication, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: login response has no access_token", filecheck.ErrAuthentication)
	}

	s.token = out.AccessToken
	return s.token, nil
}

// Token returns the current token, empty when not authenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Reset forgets the token so the next call logs in again.
func (s *Session) Reset() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
