// Package server provides the MCP server context, session management,
// and OAuth-enabled HTTP server for the ticktick-mcp application.
//
// # Key Components
//
// ServerContext manages TickTick API services with lazy initialization and
// caching. Each named account resolves to its own credentials file and
// service instance, so one server can act on behalf of several TickTick
// accounts.
//
// OAuthHTTPServer wraps an MCP server with OAuth 2.1 authentication:
//   - Authorization Server Metadata (RFC 8414)
//   - Protected Resource Metadata (RFC 9728)
//   - Dynamic Client Registration (RFC 7591)
//   - Token Revocation (RFC 7009)
//   - Token Introspection (RFC 7662)
//
// Google acts as the SSO identity provider for the HTTP transport. TickTick
// credentials never leave the server; the authenticated user's email selects
// which server-side account a request operates on.
//
// SessionIDManager handles multi-account session tracking for HTTP transport.
// It maps Bearer tokens to TickTick accounts, enabling multiple users to share
// a single MCP server instance.
//
// MetricsServer exposes Prometheus metrics and health endpoints on a separate
// listener so observability traffic stays off the MCP port.
//
// # Security Features
//
// The OAuth server includes security-focused defaults:
//   - HTTPS required for production (localhost exempt for development)
//   - PKCE required (OAuth 2.1 compliance)
//   - State parameter required for CSRF protection
//   - Rate limiting per IP and per authenticated user
//   - Optional token encryption at rest (AES-256-GCM)
//   - Audit logging for authentication events
package server
