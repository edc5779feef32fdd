package goBlog

import "errors"

var (
	// ErrNoSession is returned when a request carries no session cookie.
	ErrNoSession = errors.New("no session")
	// ErrTokenInvalid covers a bad signature, a disallowed algorithm, or a malformed payload.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrTokenExpired is returned for a correctly signed token past its expiry.
	ErrTokenExpired = errors.New("session token expired")
	// ErrTokenRevoked is returned for a token whose id was revoked at logout.
	ErrTokenRevoked = errors.New("session token revoked")
	// ErrTokenRefreshFailed is returned when an expired token could not be refreshed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")
	// ErrRefreshThrottled is wrapped by ErrTokenRefreshFailed when one refresh
	// token spent its exchange budget.
	ErrRefreshThrottled = errors.New("refresh throttled")
	// ErrRevocationUnavailable is returned when the revocation check is required but Redis is down.
	ErrRevocationUnavailable = errors.New("revocation store unavailable")
	// ErrForbidden is returned when the session role does not satisfy a guard.
	ErrForbidden = errors.New("insufficient permissions")

	// ErrEngineNotReady is returned by Engine methods on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrRedisRequired is returned by Build when revocation is enabled without a Redis client.
	ErrRedisRequired = errors.New("redis client is required")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)
