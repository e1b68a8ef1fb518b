package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/mcp/oauth"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

// OAuthConfig holds configuration for the OAuth-enabled HTTP transport
type OAuthConfig struct {
	// BaseURL is the public URL where this server is reachable
	BaseURL string

	// Google OAuth credentials for the SSO identity provider
	GoogleClientID     string
	GoogleClientSecret string

	// DisableStreaming forces plain JSON responses on the MCP endpoint
	DisableStreaming bool

	// DebugMode enables debug logging in the OAuth library
	DebugMode bool

	// Security settings passed through to the OAuth library
	AllowPublicClientRegistration bool
	RegistrationAccessToken       string
	AllowInsecureAuthWithoutState bool
	MaxClientsPerIP               int
	EncryptionKey                 []byte

	// Storage selects where OAuth sessions and tokens are persisted
	Storage oauth.StorageConfig

	// TLS configuration
	TLSCertFile string
	TLSKeyFile  string
}

// OAuthHTTPServer wraps an MCP server with OAuth 2.1 authentication
// It implements RFC 9728 Protected Resource Metadata so MCP clients can
// discover the authorization server. Google provides user identity via SSO;
// TickTick credentials stay on the server and are selected per account.
type OAuthHTTPServer struct {
	mcpServer        *mcpserver.MCPServer
	oauthHandler     *oauth.Handler
	httpServer       *http.Server
	serverType       string // "streamable-http"
	disableStreaming bool
	tlsCertFile      string
	tlsKeyFile       string
	healthChecker    *HealthChecker
	sessionManager   *SessionIDManager
	metrics          *instrumentation.Metrics
}

// CreateOAuthHandler creates an OAuth handler for use with the HTTP transport
// This allows creating the handler before the server so callers control its lifecycle
func CreateOAuthHandler(config OAuthConfig) (*oauth.Handler, error) {
	var logger *slog.Logger
	if config.DebugMode {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return oauth.NewHandler(&oauth.Config{
		BaseURL:            config.BaseURL,
		GoogleClientID:     config.GoogleClientID,
		GoogleClientSecret: config.GoogleClientSecret,
		Security: oauth.SecurityConfig{
			AllowPublicClientRegistration: config.AllowPublicClientRegistration,
			RegistrationAccessToken:       config.RegistrationAccessToken,
			AllowInsecureAuthWithoutState: config.AllowInsecureAuthWithoutState,
			MaxClientsPerIP:               config.MaxClientsPerIP,
			EncryptionKey:                 config.EncryptionKey,
			EnableAuditLogging:            true, // Always enable audit logging
		},
		RateLimit: oauth.RateLimitConfig{
			Rate:      10,  // 10 req/sec per IP
			Burst:     20,  // Allow burst of 20
			UserRate:  100, // 100 req/sec per authenticated user
			UserBurst: 200, // Allow burst of 200
		},
		Storage: config.Storage,
		Logger:  logger,
	})
}

// NewOAuthHTTPServerWithHandler creates a new OAuth-enabled HTTP server with an existing handler
func NewOAuthHTTPServerWithHandler(mcpServer *mcpserver.MCPServer, serverType string, oauthHandler *oauth.Handler, disableStreaming bool) (*OAuthHTTPServer, error) {
	return NewOAuthHTTPServerWithHandlerAndTLS(mcpServer, serverType, oauthHandler, disableStreaming, "", "")
}

// NewOAuthHTTPServerWithHandlerAndTLS creates a new OAuth-enabled HTTP server
// with an existing handler and optional TLS certificates. When both cert and
// key files are set the server serves HTTPS directly.
func NewOAuthHTTPServerWithHandlerAndTLS(mcpServer *mcpserver.MCPServer, serverType string, oauthHandler *oauth.Handler, disableStreaming bool, tlsCertFile, tlsKeyFile string) (*OAuthHTTPServer, error) {
	if oauthHandler == nil {
		return nil, fmt.Errorf("OAuth handler is required")
	}

	return &OAuthHTTPServer{
		mcpServer:        mcpServer,
		oauthHandler:     oauthHandler,
		serverType:       serverType,
		disableStreaming: disableStreaming,
		tlsCertFile:      tlsCertFile,
		tlsKeyFile:       tlsKeyFile,
		sessionManager:   NewSessionIDManager(),
	}, nil
}

// SetHealthChecker attaches a health checker whose endpoints are registered
// alongside the OAuth and MCP endpoints
func (s *OAuthHTTPServer) SetHealthChecker(hc *HealthChecker) {
	s.healthChecker = hc
}

// SetMetrics enables HTTP request instrumentation
func (s *OAuthHTTPServer) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
	if s.sessionManager != nil {
		s.sessionManager.SetMetrics(m)
	}
}

// Start starts the OAuth-enabled HTTP server
func (s *OAuthHTTPServer) Start(addr string) error {
	// Validate HTTPS requirement for OAuth 2.1
	baseURL := s.oauthHandler.GetServer().Config.Issuer
	if err := validateHTTPSRequirement(baseURL); err != nil {
		return err
	}

	mux := http.NewServeMux()

	// Get the library's HTTP handler
	libHandler := s.oauthHandler.GetHandler()

	// ========== OAuth 2.1 Endpoints ==========

	// Protected Resource Metadata endpoint (RFC 9728)
	mux.Handle("/.well-known/oauth-protected-resource", s.instrumentationMiddleware(http.HandlerFunc(libHandler.ServeProtectedResourceMetadata)))

	// Authorization Server Metadata endpoint (RFC 8414)
	mux.Handle("/.well-known/oauth-authorization-server", s.instrumentationMiddleware(http.HandlerFunc(libHandler.ServeAuthorizationServerMetadata)))

	// Dynamic Client Registration endpoint (RFC 7591)
	mux.Handle("/oauth/register", s.instrumentationMiddleware(http.HandlerFunc(libHandler.ServeClientRegistration)))

	// OAuth Authorization endpoint
	mux.Handle("/oauth/authorize", s.instrumentationMiddleware(http.HandlerFunc(libHandler.ServeAuthorization)))

	// OAuth Token endpoint
	mux.Handle("/oauth/token", s.instrumentationMiddleware(http.HandlerFunc(libHandler.ServeToken)))

	// OAuth Callback endpoint (from provider)
	mux.Handle("/oauth/callback", s.instrumentationMiddleware(http.HandlerFunc(libHandler.ServeCallback)))

	// Token Revocation endpoint (RFC 7009)
	mux.Handle("/oauth/revoke", s.instrumentationMiddleware(http.HandlerFunc(libHandler.ServeTokenRevocation)))

	// Token Introspection endpoint (RFC 7662)
	mux.Handle("/oauth/introspect", s.instrumentationMiddleware(http.HandlerFunc(libHandler.ServeTokenIntrospection)))

	// ========== Health Endpoints ==========

	if s.healthChecker != nil {
		s.healthChecker.RegisterHealthEndpoints(mux)
	}

	// ========== MCP Endpoints ==========

	// Register MCP endpoints based on server type
	switch s.serverType {
	case "streamable-http":
		// Create Streamable HTTP server
		var httpServer http.Handler
		if s.disableStreaming {
			httpServer = mcpserver.NewStreamableHTTPServer(s.mcpServer,
				mcpserver.WithEndpointPath("/mcp"),
				mcpserver.WithDisableStreaming(true),
			)
		} else {
			httpServer = mcpserver.NewStreamableHTTPServer(s.mcpServer,
				mcpserver.WithEndpointPath("/mcp"),
			)
		}

		// Wrap MCP endpoint with OAuth middleware. The instrumentation wrapper
		// runs inside ValidateToken so the authenticated user is available in
		// the request context.
		mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpServer.ServeHTTP(w, r)
		})
		mux.Handle("/mcp", libHandler.ValidateToken(s.oauthInstrumentationWrapper(mcpHandler)))

	default:
		return fmt.Errorf("unsupported server type: %s", s.serverType)
	}

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server
	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		return s.httpServer.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	// Stop the OAuth handler's background services
	if s.oauthHandler != nil {
		s.oauthHandler.Stop()
	}

	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}

	// Shutdown HTTP server
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// GetOAuthHandler returns the OAuth handler for testing or direct access
func (s *OAuthHTTPServer) GetOAuthHandler() *oauth.Handler {
	return s.oauthHandler
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// instrumentationMiddleware records request metrics for OAuth endpoints
func (s *OAuthHTTPServer) instrumentationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

// oauthInstrumentationWrapper records request metrics and session activity for
// the MCP endpoint
func (s *OAuthHTTPServer) oauthInstrumentationWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.sessionManager != nil {
			if sessionID, err := s.sessionManager.ResolveSessionID(r); err == nil {
				account := ticktick.DefaultAccount
				if user, ok := oauth.GetUserFromContext(r.Context()); ok && user.Email != "" {
					account = user.Email
				}
				s.sessionManager.TrackSession(sessionID, account)
			}
		}

		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, "/mcp", rw.statusCode, time.Since(start))
	})
}

// validateHTTPSRequirement ensures OAuth 2.1 HTTPS compliance
// Allows HTTP only for loopback addresses (localhost, 127.0.0.1, ::1)
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	// Parse URL to properly validate scheme and host
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	// Allow HTTP only for loopback addresses
	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
