package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/browser"
	"golang.org/x/oauth2"

	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/mcp/oauth"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

const (
	// callbackBasePort is the first port tried for the local callback
	// listener. The redirect URI registered with TickTick must list the
	// same ports.
	callbackBasePort = 8085

	// callbackPortSpan is how many consecutive ports are tried.
	callbackPortSpan = 5

	// defaultFlowTimeout bounds the wait for the user to finish the
	// browser authorization.
	defaultFlowTimeout = 5 * time.Minute
)

// Config holds the inputs of the interactive authorization flow.
type Config struct {
	// ClientID and ClientSecret identify the TickTick OAuth2 app.
	ClientID     string
	ClientSecret string

	// Account names the credential file to write. Empty means the
	// default account.
	Account string

	// CredentialsFile overrides the per-account credential path when set.
	CredentialsFile string

	// AuthURL and TokenURL override the TickTick OAuth2 endpoints.
	// Used in tests; empty means the real endpoints.
	AuthURL  string
	TokenURL string

	// Timeout bounds the whole flow. Zero means a sensible default.
	Timeout time.Duration

	// Out receives the user-facing instructions. Nil means stdout.
	Out io.Writer

	// OpenBrowser controls whether the authorization URL is also opened
	// in the local browser. The URL is always printed regardless.
	OpenBrowser bool
}

// Flow is one interactive authorization run: local callback listener,
// browser authorization, code exchange, credential file write.
type Flow struct {
	cfg    Config
	logger *slog.Logger
}

// NewFlow returns a flow with defaults applied.
func NewFlow(cfg Config, logger *slog.Logger) *Flow {
	if cfg.AuthURL == "" {
		cfg.AuthURL = ticktick.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = ticktick.TokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFlowTimeout
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Account == "" {
		cfg.Account = ticktick.DefaultAccount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{cfg: cfg, logger: logger}
}

// Run walks the user through the authorization and returns the path of the
// credential file it wrote.
func (f *Flow) Run(ctx context.Context) (string, error) {
	if f.cfg.ClientID == "" || f.cfg.ClientSecret == "" {
		return "", errors.New("client ID and client secret are required (register an app at https://developer.ticktick.com)")
	}

	path := f.cfg.CredentialsFile
	if path == "" {
		var err error
		path, err = ticktick.CredentialsPath(f.cfg.Account)
		if err != nil {
			return "", err
		}
	}

	listener, port, err := listenCallback()
	if err != nil {
		return "", err
	}
	defer listener.Close()

	state, err := randomState()
	if err != nil {
		return "", err
	}

	conf := f.oauthConfig(port)
	authURL := conf.AuthCodeURL(state)

	fmt.Fprintf(f.cfg.Out, "Open this URL in your browser to authorize TickTick access:\n\n  %s\n\n", authURL)
	fmt.Fprintf(f.cfg.Out, "Waiting for authorization (listening on http://localhost:%d)...\n", port)
	if f.cfg.OpenBrowser {
		if err := browser.OpenURL(authURL); err != nil {
			f.logger.Debug("could not open browser, continuing with printed URL",
				logging.Operation("auth"),
				logging.Err(err),
			)
		}
	}

	results := make(chan *oauth.CallbackResult, 1)
	srv := &http.Server{Handler: callbackHandler(state, results)}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Debug("callback server stopped", logging.Err(err))
		}
	}()
	defer srv.Close()

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	var result *oauth.CallbackResult
	select {
	case result = <-results:
	case <-ctx.Done():
		return "", fmt.Errorf("authorization not completed: %w", ctx.Err())
	}
	if err := result.Err(); err != nil {
		return "", fmt.Errorf("authorization failed: %w", err)
	}

	if err := exchangeAndSave(ctx, conf, result.Code, path, f.cfg.ClientID, f.cfg.ClientSecret); err != nil {
		return "", err
	}

	f.logger.Info("authorization complete",
		logging.Operation("auth"),
		slog.String("account", f.cfg.Account),
		slog.String("path", path),
	)
	fmt.Fprintf(f.cfg.Out, "\nAuthorization successful. Credentials saved to %s\n", path)
	return path, nil
}

// oauthConfig builds the OAuth2 configuration for the callback port.
// TickTick expects client credentials via HTTP Basic auth on the token
// endpoint.
func (f *Flow) oauthConfig(port int) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.cfg.AuthURL,
			TokenURL:  f.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		RedirectURL: fmt.Sprintf("http://localhost:%d/callback", port),
		Scopes:      ticktick.OAuthScopes,
	}
}

// listenCallback binds the local callback listener, walking forward from the
// base port so two concurrent flows do not collide.
func listenCallback() (net.Listener, int, error) {
	var lastErr error
	for port := callbackBasePort; port < callbackBasePort+callbackPortSpan; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return listener, port, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no free callback port in %d-%d: %w",
		callbackBasePort, callbackBasePort+callbackPortSpan-1, lastErr)
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// callbackHandler serves the OAuth redirect. The first matching callback is
// delivered to results; anything after that gets the same success page so a
// browser reload does not show an error.
func callbackHandler(state string, results chan<- *oauth.CallbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result := oauth.ParseCallbackQuery(
			q.Get("code"),
			q.Get("state"),
			q.Get("error"),
			q.Get("error_description"),
			q.Get("error_uri"),
		)

		if result.Err() == nil && result.State != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		if err := result.Err(); err != nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>%s</p></body></html>", err)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><h1>Authorization complete</h1><p>You can close this tab and return to the terminal.</p></body></html>")
		}

		select {
		case results <- result:
		default:
		}
	})
	return mux
}

// exchangeAndSave trades the authorization code for tokens and writes the
// credential file.
func exchangeAndSave(ctx context.Context, conf *oauth2.Config, code, path, clientID, clientSecret string) error {
	// TickTick requires the scope parameter on the token request too.
	token, err := conf.Exchange(ctx, code,
		oauth2.SetAuthURLParam("scope", strings.Join(ticktick.OAuthScopes, " ")),
	)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if token.AccessToken == "" {
		return errors.New("token response contained no access token")
	}

	creds := &ticktick.Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}
	creds.SetToken(token)
	if err := ticktick.SaveCredentials(path, creds); err != nil {
		return err
	}
	return nil
}
