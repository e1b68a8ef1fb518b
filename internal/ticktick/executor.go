package ticktick

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/teemow/ticktick-mcp/internal/logging"
)

// DefaultBaseURL is the TickTick Open API root.
const DefaultBaseURL = "https://api.ticktick.com/open/v1"

// Executor defaults; all of them are configurable through ExecutorConfig.
const (
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 1 * time.Second
	DefaultRequestTimeout = 30 * time.Second

	// maxBackoff caps the exponential retry delay.
	maxBackoff = 30 * time.Second
)

// TokenSource supplies valid access tokens and performs reactive refresh.
// *TokenStore implements it.
type TokenSource interface {
	// Token returns an access token valid at return time.
	Token(ctx context.Context) (string, error)

	// Refresh replaces a rejected access token. stale is the token that was
	// rejected; implementations may return a newer token without a remote
	// grant if one already exists.
	Refresh(ctx context.Context, stale string) (string, error)
}

// ExecutorConfig configures request dispatch and the retry policy.
type ExecutorConfig struct {
	// BaseURL overrides the API root (tests point this at a local server)
	BaseURL string

	// MaxRetries bounds retries for rate-limit and transient failures
	MaxRetries int

	// RetryBaseDelay is the first backoff delay; it doubles per retry
	RetryBaseDelay time.Duration

	// RequestTimeout bounds a single request round trip
	RequestTimeout time.Duration

	// HTTPClient overrides the transport (optional)
	HTTPClient *http.Client

	// Logger receives retry and classification logs (optional)
	Logger *slog.Logger
}

func (c *ExecutorConfig) withDefaults() ExecutorConfig {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.MaxRetries == 0 {
		out.MaxRetries = DefaultMaxRetries
	}
	if out.RetryBaseDelay == 0 {
		out.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if out.RequestTimeout == 0 {
		out.RequestTimeout = DefaultRequestTimeout
	}
	if out.HTTPClient == nil {
		out.HTTPClient = &http.Client{}
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Executor issues authenticated API calls and classifies every response into
// the error taxonomy: one refresh-and-retry on 401, bounded backoff on 429
// and transport failures, NotFoundError on 404, APIError verbatim otherwise.
type Executor struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	maxRetries     int
	baseDelay      time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger

	// sleep is replaced in tests to observe backoff ordering
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor backed by the given token source.
func NewExecutor(tokens TokenSource, cfg ExecutorConfig) *Executor {
	cfg = cfg.withDefaults()
	return &Executor{
		baseURL:        cfg.BaseURL,
		httpClient:     cfg.HTTPClient,
		tokens:         tokens,
		maxRetries:     cfg.MaxRetries,
		baseDelay:      cfg.RetryBaseDelay,
		requestTimeout: cfg.RequestTimeout,
		logger:         cfg.Logger,
		sleep:          sleepContext,
	}
}

// Do issues a request and decodes a 2xx JSON response into out (out may be
// nil for endpoints that return no body). Transport-level retries are only
// performed for methods that are safe to repeat (GET, DELETE); use
// DoIdempotent for by-id writes that are.
func (e *Executor) Do(ctx context.Context, method, path string, body, out any) error {
	idempotent := method == http.MethodGet || method == http.MethodDelete
	return e.do(ctx, method, path, body, out, idempotent)
}

// DoIdempotent is Do for requests that are safe to repeat even though their
// method is not, such as POST updates addressed by resource ID.
func (e *Executor) DoIdempotent(ctx context.Context, method, path string, body, out any) error {
	return e.do(ctx, method, path, body, out, true)
}

func (e *Executor) do(ctx context.Context, method, path string, body, out any, idempotent bool) error {
	op := method + " " + path

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	refreshed := false
	retries := 0
	for {
		status, respBody, retryAfter, usedToken, err := e.send(ctx, method, path, payload)
		if err != nil {
			var authErr *AuthError
			if errors.As(err, &authErr) {
				return err
			}
			if ctx.Err() != nil {
				return fmt.Errorf("%s canceled: %w", op, ctx.Err())
			}
			if !idempotent || retries >= e.maxRetries {
				return &TransientError{Op: op, Attempts: retries + 1, Err: err}
			}
			retries++
			if err := e.backoff(ctx, op, retries, 0); err != nil {
				return err
			}
			continue
		}

		switch {
		case status >= 200 && status < 300:
			if out == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", op, err)
			}
			return nil

		case status == http.StatusUnauthorized:
			if refreshed {
				return &AuthError{Op: op, Err: errors.New("request rejected again after token refresh")}
			}
			refreshed = true
			e.logger.Debug("access token rejected, refreshing once", logging.Operation(op))
			if _, err := e.tokens.Refresh(ctx, usedToken); err != nil {
				return err
			}
			continue

		case status == http.StatusNotFound:
			return &NotFoundError{Kind: "resource", ID: path}

		case status == http.StatusTooManyRequests:
			// The remote rejected the request, so no side effect happened
			// and a retry is safe for any method.
			if retries >= e.maxRetries {
				return &RateLimitError{Op: op, Attempts: retries + 1, RetryAfter: retryAfter}
			}
			retries++
			if err := e.backoff(ctx, op, retries, retryAfter); err != nil {
				return err
			}
			continue

		default:
			return &APIError{Op: op, StatusCode: status, Message: string(bytes.TrimSpace(respBody))}
		}
	}
}

// send performs one request attempt. It returns the HTTP status, raw body, a
// Retry-After hint (zero when absent) and the bearer token that was used.
func (e *Executor) send(ctx context.Context, method, path string, payload []byte) (int, []byte, time.Duration, string, error) {
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return 0, nil, 0, "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, e.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, 0, token, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, nil, 0, token, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, token, err
	}
	return resp.StatusCode, respBody, parseRetryAfter(resp.Header.Get("Retry-After")), token, nil
}

// backoff waits before the given retry, doubling the base delay per attempt
// and honoring a server hint when it asks for longer.
func (e *Executor) backoff(ctx context.Context, op string, retry int, hint time.Duration) error {
	delay := e.baseDelay << (retry - 1)
	if delay > maxBackoff {
		delay = maxBackoff
	}
	if hint > delay {
		delay = hint
	}
	e.logger.Warn("retrying request",
		logging.Operation(op),
		logging.Attempt(retry),
		slog.Duration("delay", delay),
	)
	if err := e.sleep(ctx, delay); err != nil {
		return fmt.Errorf("%s canceled during backoff: %w", op, err)
	}
	return nil
}

// parseRetryAfter handles both forms of the Retry-After header: a delay in
// seconds or an HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
