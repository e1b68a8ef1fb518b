package oauth

import "log/slog"

// StorageType identifies the backend that holds OAuth session state.
type StorageType string

const (
	// StorageTypeMemory keeps sessions in process memory. Sessions are lost
	// on restart, which is fine for single-instance deployments.
	StorageTypeMemory StorageType = "memory"

	// StorageTypeValkey keeps sessions in a Valkey server so that multiple
	// replicas can share them.
	StorageTypeValkey StorageType = "valkey"
)

// Config holds the settings mapped onto the mcp-oauth library.
type Config struct {
	// BaseURL is the public URL of this server. It becomes the OAuth issuer
	// and the protected resource identifier.
	BaseURL string

	// GoogleClientID is the Google OAuth Client ID used to authenticate
	// MCP clients against Google.
	GoogleClientID string

	// GoogleClientSecret is the Google OAuth Client Secret.
	GoogleClientSecret string

	// Security holds OAuth security settings (secure by default).
	Security SecurityConfig

	// RateLimit holds rate limiting configuration.
	RateLimit RateLimitConfig

	// Storage selects and configures the session storage backend.
	// Defaults to in-memory storage.
	Storage StorageConfig

	// Logger for structured logging (optional, uses slog.Default if nil)
	Logger *slog.Logger
}

// SecurityConfig holds OAuth security settings
type SecurityConfig struct {
	// AllowPublicClientRegistration allows unauthenticated dynamic client registration
	// WARNING: This can lead to DoS attacks via unlimited client registration
	// When false, client registration requires a registration access token
	AllowPublicClientRegistration bool

	// RegistrationAccessToken is the token required for client registration
	// Only checked if AllowPublicClientRegistration is false
	RegistrationAccessToken string

	// AllowInsecureAuthWithoutState allows authorization requests without state parameter
	// WARNING: Disabling this weakens CSRF protection and is NOT recommended
	AllowInsecureAuthWithoutState bool

	// MaxClientsPerIP limits the number of clients that can be registered per IP
	// Prevents DoS attacks via mass client registration (0 = library default)
	MaxClientsPerIP int

	// EncryptionKey is the AES-256 key for encrypting tokens at rest (32 bytes)
	// If nil or empty, tokens are stored unencrypted
	EncryptionKey []byte

	// EnableAuditLogging enables the library's security audit logging
	EnableAuditLogging bool
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Rate is the number of requests per second allowed per IP (0 = no limit)
	Rate int

	// Burst is the maximum burst size allowed per IP
	Burst int

	// UserRate is the number of requests per second allowed per authenticated user
	UserRate int

	// UserBurst is the maximum burst size allowed per authenticated user
	UserBurst int
}

// StorageConfig holds OAuth session storage backend configuration
type StorageConfig struct {
	// Type is the storage backend type (default: memory)
	Type StorageType

	// Valkey configuration, used when Type is StorageTypeValkey
	Valkey ValkeyConfig
}

// ValkeyConfig holds configuration for the Valkey storage backend
type ValkeyConfig struct {
	// URL is the Valkey server address (e.g., "valkey.namespace.svc:6379")
	URL string

	// Password is the optional password for Valkey authentication
	Password string

	// TLSEnabled enables TLS for Valkey connections
	TLSEnabled bool

	// TLSCAFile is the path to a custom CA certificate file for TLS verification.
	// Use this when Valkey uses certificates signed by a private CA.
	TLSCAFile string

	// KeyPrefix is the prefix for all Valkey keys (default: "mcp:")
	KeyPrefix string

	// DB is the Valkey database number (default: 0)
	DB int
}
