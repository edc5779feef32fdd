package goBlog

import (
	"time"

	"github.com/MrEthical07/goBlog/api"
)

// Role is the account role reported by the backend.
type Role = api.Role

const (
	RoleNone    = api.RoleNone
	RolePending = api.RolePending
	RoleUser    = api.RoleUser
	RoleAdmin   = api.RoleAdmin
)

// Profile is the signed-in user's profile record.
type Profile = api.Profile

// Session is a verified session token.
//
//	Docs: docs/session.md
type Session struct {
	Subject    string
	ExternalID string
	TokenID    string
	IssuedAt   time.Time
	ExpiresAt  time.Time

	// Token is the raw bearer token the session was resolved from.
	Token string
}

// AuthState is the composed view of the role and profile queries.
//
// IsLoggedIn is true iff Role is present. NeedsProfileCompletion is true iff
// Role is [RolePending], and in that case UserProfile is always nil.
//
//	Docs: docs/auth_state.md
type AuthState struct {
	IsLoggedIn             bool
	NeedsProfileCompletion bool
	Role                   Role
	UserProfile            *Profile
	IsLoading              bool
	Error                  error
}

// Settlement is the outcome of one query in a fan-out. Exactly one of
// Value or Err is meaningful.
type Settlement[T any] struct {
	Value T
	Err   error
}

func (s Settlement[T]) OK() bool { return s.Err == nil }

// RefetchResult reports both auth queries independently.
type RefetchResult struct {
	Role    Settlement[Role]
	Profile Settlement[Profile]
}

// GuardState is the terminal state of one guard evaluation.
type GuardState uint8

const (
	GuardAuthorized GuardState = iota
	GuardUnauthenticated
	GuardSessionExpired
	GuardForbidden
)

func (s GuardState) String() string {
	switch s {
	case GuardAuthorized:
		return "authorized"
	case GuardUnauthenticated:
		return "unauthenticated"
	case GuardSessionExpired:
		return "session_expired"
	case GuardForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Reason is the value of the "error" redirect query parameter.
type Reason string

const (
	ReasonAuthenticationRequired  Reason = "authentication_required"
	ReasonInsufficientPermissions Reason = "insufficient_permissions"
	ReasonSessionExpired          Reason = "session_expired"
	ReasonTokenRefreshFailed      Reason = "token_refresh_failed"
	ReasonDefault                 Reason = "default"
)

// ParseReason maps a query parameter value to a known reason. Unknown or
// empty values map to [ReasonDefault].
func ParseReason(s string) Reason {
	switch r := Reason(s); r {
	case ReasonAuthenticationRequired, ReasonInsufficientPermissions, ReasonSessionExpired, ReasonTokenRefreshFailed:
		return r
	default:
		return ReasonDefault
	}
}

// GuardOptions configures one protected view.
type GuardOptions struct {
	RequireAdmin bool
	// FallbackURL overrides Config.Guard.FallbackURL for unauthenticated
	// and expired sessions. It must be a relative path.
	FallbackURL string
}

// GuardDecision is the result of [Engine.EvaluateGuard]. RedirectURL is
// empty iff State is [GuardAuthorized].
//
//	Docs: docs/guard.md
type GuardDecision struct {
	State       GuardState
	Reason      Reason
	RedirectURL string
	Session     *Session
	Role        Role
	Err         error
}

func (d GuardDecision) Authorized() bool { return d.State == GuardAuthorized }

// ErrorAction is the single recovery action offered on the error page.
type ErrorAction struct {
	Label string
	URL   string
}

// ErrorPageContent is the human-readable text for a reason code.
type ErrorPageContent struct {
	Reason      Reason
	Title       string
	Description string
	Action      ErrorAction
}
