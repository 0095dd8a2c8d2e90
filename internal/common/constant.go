package common

// TokenCookieName is the HTTP-only cookie carrying the auth token for
// browser clients.
const TokenCookieName = "taskmate_token"

// AuthorizationHeaderName carries "Bearer <token>" for programmatic clients.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName is echoed back on every response.
const RequestIDHeaderName = "X-Request-ID"
