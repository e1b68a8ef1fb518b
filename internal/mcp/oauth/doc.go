// Package oauth provides adapters for integrating the github.com/giantswarm/mcp-oauth
// library with the ticktick-mcp server.
//
// This package bridges the mcp-oauth library with our existing server architecture,
// providing configuration mapping, storage backend selection, and helpers for
// reading the authenticated user from request contexts.
//
// The library acts as an OAuth 2.1 authorization server in front of the MCP
// HTTP endpoint, with Google as the identity provider. TickTick credentials
// are never part of this flow; they are provisioned server side per account
// by the auth command.
//
// Dependency Security Note:
// This package depends on github.com/giantswarm/mcp-oauth v0.2.52 for OAuth 2.1 implementation.
// The library provides: PKCE enforcement, refresh token rotation, rate limiting, and audit logging.
// Security posture: Actively maintained, implements OAuth 2.1 specification.
// Action required: Monitor https://github.com/giantswarm/mcp-oauth for security updates.
package oauth
