package oauth

import (
	"context"

	mcpoauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers"
)

// UserInfo is the authenticated user's identity as reported by the provider.
type UserInfo = providers.UserInfo

// GetUserFromContext retrieves the authenticated user from the request context.
// The library's ValidateToken middleware stores the user info after validating
// the Bearer token, so this only succeeds on requests that passed through it.
func GetUserFromContext(ctx context.Context) (*UserInfo, bool) {
	info, ok := mcpoauth.UserInfoFromContext(ctx)
	if !ok || info == nil {
		return nil, false
	}
	return info, true
}

// ContextWithUserInfo returns a context carrying the given user info.
// Exposed for tests that exercise handlers behind the OAuth middleware.
func ContextWithUserInfo(ctx context.Context, info *UserInfo) context.Context {
	return mcpoauth.ContextWithUserInfo(ctx, info)
}
