package oauth

import (
	mcpoauth "github.com/giantswarm/mcp-oauth"
)

// CallbackResult represents the result of an OAuth authorization callback.
// It parses and holds the query parameters from the OAuth redirect.
//
// The callback may contain either:
//   - Success: Code and State parameters
//   - Error: Error, ErrorDescription, and optionally ErrorURI parameters
//
// Use Err() to get a typed error for error responses.
type CallbackResult = mcpoauth.CallbackResult

// SilentAuthError represents an error from a silent authentication attempt.
// These errors indicate the IdP requires user interaction and the client
// should fall back to interactive login.
type SilentAuthError = mcpoauth.SilentAuthError

// ParseCallbackQuery creates a CallbackResult from URL query parameters.
//
// Example usage:
//
//	q := r.URL.Query()
//	result := oauth.ParseCallbackQuery(
//	    q.Get("code"),
//	    q.Get("state"),
//	    q.Get("error"),
//	    q.Get("error_description"),
//	    q.Get("error_uri"),
//	)
//	if err := result.Err(); err != nil {
//	    // The user denied access or the provider reported an error
//	}
func ParseCallbackQuery(code, state, errorCode, errorDescription, errorURI string) *CallbackResult {
	return mcpoauth.ParseCallbackQuery(code, state, errorCode, errorDescription, errorURI)
}

// ParseOAuthError parses an OAuth error response and returns the appropriate
// error type. For silent auth failure codes (login_required, consent_required,
// interaction_required, account_selection_required), returns a *SilentAuthError.
// For other errors, returns a generic error with the code and description.
// Returns nil if errorCode is empty.
func ParseOAuthError(errorCode, errorDescription string) error {
	return mcpoauth.ParseOAuthError(errorCode, errorDescription)
}

// IsSilentAuthError returns true if the error indicates silent authentication
// failed and interactive login is required.
func IsSilentAuthError(err error) bool {
	return mcpoauth.IsSilentAuthError(err)
}

// OAuth error codes for silent authentication failures.
// These are defined per OIDC Core Section 3.1.2.6.
const (
	// ErrorCodeLoginRequired indicates no active session at the IdP.
	ErrorCodeLoginRequired = mcpoauth.ErrorCodeLoginRequired

	// ErrorCodeConsentRequired indicates the user hasn't granted required scopes.
	ErrorCodeConsentRequired = mcpoauth.ErrorCodeConsentRequired

	// ErrorCodeInteractionRequired indicates the IdP needs user interaction.
	ErrorCodeInteractionRequired = mcpoauth.ErrorCodeInteractionRequired

	// ErrorCodeAccountSelectionRequired indicates multiple accounts are available
	// and the user must select one.
	ErrorCodeAccountSelectionRequired = mcpoauth.ErrorCodeAccountSelectionRequired
)
