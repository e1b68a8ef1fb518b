package ticktick

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/ticktick-mcp/internal/logging"
)

// TickTick OAuth2 endpoints.
const (
	AuthURL  = "https://ticktick.com/oauth/authorize"
	TokenURL = "https://ticktick.com/oauth/token"
)

// OAuthScopes are the scopes requested during authorization.
var OAuthScopes = []string{"tasks:read", "tasks:write"}

// refreshThreshold is how close to expiry a token may get before it is
// refreshed proactively. Matches the window used for access tokens that
// typically live for hours.
const refreshThreshold = 5 * time.Minute

// refreshTimeout bounds a single refresh grant round trip.
const refreshTimeout = 30 * time.Second

// Credentials is the persisted credential state: the OAuth2 client identity
// together with the current token. The JSON keys are the credential file
// contract; other programs may read the same file.
type Credentials struct {
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry"`
}

// Token returns the credential's token portion as an oauth2.Token.
func (c *Credentials) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// SetToken replaces the token portion of the credentials. A token response
// without a refresh token keeps the existing one, per RFC 6749 §6.
func (c *Credentials) SetToken(t *oauth2.Token) {
	c.AccessToken = t.AccessToken
	c.TokenType = t.TokenType
	c.Expiry = t.Expiry
	if t.RefreshToken != "" {
		c.RefreshToken = t.RefreshToken
	}
}

// LoadCredentials reads a credential file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credential file %s: %w", path, err)
	}
	return &creds, nil
}

// SaveCredentials writes the full credential state atomically: the new
// content goes to a temp file in the same directory which is then renamed
// over the target, so a crash never leaves a partially written file.
func SaveCredentials(path string, creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credential file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

// TokenStore owns the OAuth2 credential lifecycle for one credential file.
// Token returns an access token that is guaranteed non-expired at return
// time; refresh-and-persist runs under a mutex so concurrent callers never
// observe a token mid-refresh.
type TokenStore struct {
	path       string
	tokenURL   string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	creds Credentials
}

// NewTokenStore loads the credential file at path and returns a store bound
// to it.
func NewTokenStore(path string, logger *slog.Logger) (*TokenStore, error) {
	creds, err := LoadCredentials(path)
	if err != nil {
		return nil, fmt.Errorf("no credentials at %s (run 'ticktick-mcp auth' first): %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{
		path:       path,
		tokenURL:   TokenURL,
		httpClient: &http.Client{Timeout: refreshTimeout},
		logger:     logger,
		creds:      *creds,
	}, nil
}

// Path returns the credential file path the store reads and rewrites.
func (s *TokenStore) Path() string {
	return s.path
}

// Credentials returns a copy of the current credential state.
func (s *TokenStore) Credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// Token returns a valid access token, refreshing it first when it is missing
// or inside the expiry threshold.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiredLocked() {
		if err := s.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return s.creds.AccessToken, nil
}

// Refresh exchanges the refresh token for a new access token. The stale
// argument is the access token the caller saw rejected; when another caller
// already refreshed in the meantime the current token is returned without a
// second grant.
func (s *TokenStore) Refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds.AccessToken != "" && s.creds.AccessToken != stale {
		return s.creds.AccessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.creds.AccessToken, nil
}

func (s *TokenStore) expiredLocked() bool {
	if s.creds.AccessToken == "" {
		return true
	}
	return time.Now().Add(refreshThreshold).After(s.creds.Expiry)
}

// tokenResponse is the token endpoint's response payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// refreshLocked performs the OAuth2 refresh-token grant and persists the
// result. TickTick expects client credentials via HTTP Basic auth and a
// form-encoded body. Caller must hold s.mu.
func (s *TokenStore) refreshLocked(ctx context.Context) error {
	if s.creds.RefreshToken == "" {
		return &AuthError{Op: "refresh token", Err: errors.New("no refresh token in credential file")}
	}
	if s.creds.ClientID == "" || s.creds.ClientSecret == "" {
		return &AuthError{Op: "refresh token", Err: errors.New("credential file is missing client_id or client_secret")}
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {s.creds.RefreshToken},
		"scope":         {strings.Join(OAuthScopes, " ")},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return &AuthError{Op: "refresh token", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.creds.ClientID, s.creds.ClientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &AuthError{Op: "refresh token", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthError{
			Op:  "refresh token",
			Err: fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return &AuthError{Op: "refresh token", Err: fmt.Errorf("invalid token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return &AuthError{Op: "refresh token", Err: errors.New("token response contained no access token")}
	}

	s.creds.SetToken(&oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Expiry:       time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	})

	s.logger.Info("refreshed access token",
		logging.Operation("token_refresh"),
		slog.String("token", logging.SanitizeToken(s.creds.AccessToken)),
		slog.Time("expiry", s.creds.Expiry),
	)

	// A failed write must not discard a working in-memory token.
	if err := SaveCredentials(s.path, &s.creds); err != nil {
		s.logger.Warn("failed to persist refreshed credentials",
			logging.Operation("token_refresh"),
			logging.Err(err),
		)
	}
	return nil
}
