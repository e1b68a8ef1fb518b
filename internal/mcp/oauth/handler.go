package oauth

import (
	"fmt"
	"log/slog"

	mcpoauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/storage"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	valkeystore "github.com/giantswarm/mcp-oauth/storage/valkey"
)

// Handler wraps the mcp-oauth library's authorization server and exposes
// the pieces the HTTP transport needs: the endpoint handlers, the token
// validation middleware, and the session store.
type Handler struct {
	server  *mcpoauth.Server
	handler *mcpoauth.Handler
	store   storage.Store
}

// NewHandler creates a new OAuth handler backed by the mcp-oauth library.
func NewHandler(cfg *Config) (*Handler, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, fmt.Errorf("google client credentials are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := newStore(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth session store: %w", err)
	}

	server, err := mcpoauth.NewServer(&mcpoauth.Config{
		Issuer: cfg.BaseURL,
		GoogleAuth: mcpoauth.GoogleAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
		},
		Storage: store,
		Security: mcpoauth.SecurityConfig{
			AllowPublicClientRegistration: cfg.Security.AllowPublicClientRegistration,
			RegistrationAccessToken:       cfg.Security.RegistrationAccessToken,
			AllowInsecureAuthWithoutState: cfg.Security.AllowInsecureAuthWithoutState,
			MaxClientsPerIP:               cfg.Security.MaxClientsPerIP,
			EncryptionKey:                 cfg.Security.EncryptionKey,
			EnableAuditLogging:            cfg.Security.EnableAuditLogging,
		},
		RateLimit: mcpoauth.RateLimitConfig{
			Rate:      cfg.RateLimit.Rate,
			Burst:     cfg.RateLimit.Burst,
			UserRate:  cfg.RateLimit.UserRate,
			UserBurst: cfg.RateLimit.UserBurst,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OAuth server: %w", err)
	}

	return &Handler{
		server:  server,
		handler: mcpoauth.NewHandler(server),
		store:   store,
	}, nil
}

// newStore builds the session storage backend for the library.
func newStore(cfg StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case StorageTypeMemory, "":
		return memory.New(), nil
	case StorageTypeValkey:
		if cfg.Valkey.URL == "" {
			return nil, fmt.Errorf("valkey storage requires a server URL")
		}
		return valkeystore.New(valkeystore.Config{
			Address:    cfg.Valkey.URL,
			Password:   cfg.Valkey.Password,
			TLSEnabled: cfg.Valkey.TLSEnabled,
			TLSCAFile:  cfg.Valkey.TLSCAFile,
			KeyPrefix:  cfg.Valkey.KeyPrefix,
			DB:         cfg.Valkey.DB,
		})
	default:
		return nil, fmt.Errorf("unsupported OAuth storage type: %q", cfg.Type)
	}
}

// GetHandler returns the library's HTTP endpoint handlers
func (h *Handler) GetHandler() *mcpoauth.Handler {
	return h.handler
}

// GetServer returns the underlying library server
func (h *Handler) GetServer() *mcpoauth.Server {
	return h.server
}

// GetStore returns the OAuth session token store
func (h *Handler) GetStore() storage.TokenStore {
	return h.store
}

// Stop shuts down the handler's background services
func (h *Handler) Stop() {
	if h.server != nil {
		h.server.Stop()
	}
}
