package goBlog

import (
	"context"
	"errors"
	"net/url"

	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/session"
)

// EvaluateGuard decides whether the request behind storage may render a
// protected view. It evaluates once and caches nothing of its own: the role
// is always loaded from the backend. A token refresh it triggers rewrites
// the cookies through storage.
//
//   - no session, or expired without a refresh cookie: [GuardUnauthenticated],
//     FallbackURL?error=authentication_required
//   - refresh failed: [GuardSessionExpired], FallbackURL?error=session_expired
//   - RequireAdmin and role is not ADMIN: [GuardForbidden], ForbiddenURL?error=insufficient_permissions
//
//	Docs: docs/guard.md
func (e *Engine) EvaluateGuard(ctx context.Context, storage session.Storage, opts GuardOptions) GuardDecision {
	if e == nil {
		return GuardDecision{State: GuardUnauthenticated, Reason: ReasonDefault, Err: ErrEngineNotReady}
	}
	fallback := e.config.Guard.FallbackURL
	if opts.FallbackURL != "" && isRelativePath(opts.FallbackURL) {
		fallback = opts.FallbackURL
	}

	sess, err := e.EnsureFresh(ctx, storage)
	switch {
	case errors.Is(err, ErrTokenRefreshFailed):
		return e.deny(ctx, GuardSessionExpired, ReasonSessionExpired, fallback, nil, err)
	case errors.Is(err, ErrTokenExpired):
		// Expired with nothing to refresh with: logged out.
		return e.deny(ctx, GuardUnauthenticated, ReasonAuthenticationRequired, fallback, nil, err)
	case err != nil:
		return e.deny(ctx, GuardUnauthenticated, ReasonAuthenticationRequired, fallback, nil, err)
	case sess == nil:
		return e.deny(ctx, GuardUnauthenticated, ReasonAuthenticationRequired, fallback, nil, ErrNoSession)
	}

	decision := GuardDecision{State: GuardAuthorized, Session: sess}
	if opts.RequireAdmin {
		role, err := e.Scope(sess).RefetchRole(api.WithToken(ctx, sess.Token))
		switch {
		case err != nil:
			e.logger.Warn(ctx, "goblog: guard role lookup failed", "subject", sess.Subject, "error", err)
			return e.deny(ctx, GuardUnauthenticated, ReasonAuthenticationRequired, fallback, sess, err)
		case role == RoleNone:
			return e.deny(ctx, GuardUnauthenticated, ReasonAuthenticationRequired, fallback, sess, ErrNoSession)
		case role != RoleAdmin:
			d := e.deny(ctx, GuardForbidden, ReasonInsufficientPermissions, e.config.Guard.ForbiddenURL, sess, ErrForbidden)
			d.Role = role
			return d
		}
		decision.Role = role
	}

	e.metricInc(MetricGuardAuthorized)
	return decision
}

func (e *Engine) deny(ctx context.Context, state GuardState, reason Reason, target string, sess *Session, err error) GuardDecision {
	switch state {
	case GuardUnauthenticated:
		e.metricInc(MetricGuardUnauthenticated)
	case GuardSessionExpired:
		e.metricInc(MetricGuardSessionExpired)
	case GuardForbidden:
		e.metricInc(MetricGuardForbidden)
	}

	event := auditEventGuardDenied
	if state == GuardForbidden {
		event = auditEventGuardForbidden
	}
	e.emitAudit(ctx, event, false, sess, err, func() map[string]string {
		return map[string]string{"reason": string(reason)}
	})

	return GuardDecision{
		State:       state,
		Reason:      reason,
		RedirectURL: redirectWithReason(target, reason),
		Session:     sess,
		Err:         err,
	}
}

// redirectWithReason sets the "error" parameter on target, keeping any
// query it already has.
func redirectWithReason(target string, reason Reason) string {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("error", string(reason))
	u.RawQuery = q.Encode()
	return u.String()
}

var errorPages = map[Reason]ErrorPageContent{
	ReasonAuthenticationRequired: {
		Title:       "Sign-in required",
		Description: "You need to sign in to view this page.",
	},
	ReasonInsufficientPermissions: {
		Title:       "Access denied",
		Description: "Your account does not have permission to view this page.",
	},
	ReasonSessionExpired: {
		Title:       "Session expired",
		Description: "Your session has expired. Please sign in again.",
	},
	ReasonTokenRefreshFailed: {
		Title:       "Session could not be renewed",
		Description: "We could not renew your session. Please sign in again.",
	},
	ReasonDefault: {
		Title:       "Something went wrong",
		Description: "An unexpected error occurred while checking your access.",
	},
}

// ErrorContent returns the error page text for reason. Unknown reasons get
// the default text. The one action always leads home.
func (e *Engine) ErrorContent(reason Reason) ErrorPageContent {
	reason = ParseReason(string(reason))
	c := errorPages[reason]
	c.Reason = reason
	c.Action = ErrorAction{Label: "Return home", URL: e.config.Guard.HomeURL}
	return c
}
