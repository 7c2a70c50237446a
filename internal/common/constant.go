package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"

// AccessTokenCookieName is the cookie used to hand the access token to the
// browser after an OAuth login.
const AccessTokenCookieName = "access_token"

// OAuthStateCookieName holds the signed OAuth state between the redirect to
// the provider and its callback.
const OAuthStateCookieName = "oauth_state"

// ProviderGitHub tags tokens minted after a GitHub login.
const ProviderGitHub = "github"
