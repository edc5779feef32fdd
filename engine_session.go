package goBlog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/internal/rate"
	"github.com/MrEthical07/goBlog/jwt"
	"github.com/MrEthical07/goBlog/session"
)

// ResolveSession verifies token and consults the revocation store.
//
// Errors: [ErrTokenInvalid], [ErrTokenExpired], [ErrTokenRevoked], and
// [ErrRevocationUnavailable] when Session.RequireRevocationCheck is set and
// Redis cannot answer.
//
//	Performance: local signature check, at most 1 Redis EXISTS.
//	Docs: docs/session.md
func (e *Engine) ResolveSession(ctx context.Context, token string) (*Session, error) {
	if e == nil || e.jwt == nil {
		return nil, ErrEngineNotReady
	}
	start := e.now()
	defer e.metricObserve(MetricResolveLatency, start)

	claims, err := e.jwt.ParseSession(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	sess := sessionFromClaims(claims, token)

	if e.store != nil && e.config.Session.RevocationEnabled && sess.TokenID != "" {
		revoked, err := e.store.IsRevoked(ctx, sess.TokenID)
		switch {
		case err != nil && e.config.Session.RequireRevocationCheck:
			e.emitAudit(ctx, auditEventRevocationError, false, sess, ErrRevocationUnavailable, nil)
			return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
		case err != nil:
			e.logger.Warn(ctx, "goblog: revocation check skipped", "error", err)
		case revoked:
			return nil, ErrTokenRevoked
		}
	}

	return sess, nil
}

func sessionFromClaims(claims *jwt.SessionClaims, token string) *Session {
	sess := &Session{
		Subject:    claims.Subject,
		ExternalID: claims.ExternalID,
		TokenID:    claims.TokenID(),
		ExpiresAt:  claims.Expiry(),
		Token:      token,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	return sess
}

// SessionFromStorage returns the session carried by the access cookie.
//
// Absent, expired, revoked, and invalid tokens all yield (nil, nil): the
// caller sees a logged-out request, never a token error. The only error
// returned is [ErrRevocationUnavailable] under a required revocation check.
func (e *Engine) SessionFromStorage(ctx context.Context, storage session.Storage) (*Session, error) {
	token, ok := storage.Get(session.AccessCookie)
	if !ok {
		e.metricInc(MetricSessionAbsent)
		return nil, nil
	}

	sess, err := e.ResolveSession(ctx, token)
	if err == nil {
		e.metricInc(MetricSessionResolved)
		return sess, nil
	}
	if e.absorbSessionError(ctx, err) {
		return nil, nil
	}
	return nil, err
}

// SessionFromRequest is [Engine.SessionFromStorage] over the request cookies.
func (e *Engine) SessionFromRequest(r *http.Request) (*Session, error) {
	return e.SessionFromStorage(r.Context(), session.NewCookieStorage(nil, r, e.CookiePolicy()))
}

// absorbSessionError records err and reports whether it means "no session".
func (e *Engine) absorbSessionError(ctx context.Context, err error) bool {
	switch {
	case errors.Is(err, ErrTokenExpired):
		e.metricInc(MetricSessionExpired)
		e.logger.Debug(ctx, "goblog: session expired")
	case errors.Is(err, ErrTokenRevoked):
		e.metricInc(MetricSessionRevoked)
		e.logger.Debug(ctx, "goblog: session revoked")
		e.emitAudit(ctx, auditEventSessionRevoked, false, nil, err, nil)
	case errors.Is(err, ErrTokenInvalid):
		e.metricInc(MetricSessionInvalid)
		e.logger.Warn(ctx, "goblog: invalid session token", "error", err)
		e.emitAudit(ctx, auditEventSessionInvalid, false, nil, err, nil)
	default:
		return false
	}
	return true
}

// IsTokenExpiring reports whether sess expires within Session.RefreshWindow
// of now. A nil session is expiring.
func (e *Engine) IsTokenExpiring(sess *Session, now time.Time) bool {
	if sess == nil || sess.ExpiresAt.IsZero() {
		return true
	}
	return !sess.ExpiresAt.After(now.Add(e.config.Session.RefreshWindow))
}

// EnsureFresh returns a session that is safe to use for an authorized call.
//
// When the access token is expiring or expired and a refresh cookie is
// present, the backend refresh endpoint is called first and both cookies are
// rewritten through storage. Concurrent refreshes of one refresh token share
// one backend call per process; replicas converge through the Redis hand-off.
//
// A failed refresh of a still-valid token keeps the current session. A failed
// refresh of an expired token returns [ErrTokenRefreshFailed]. An expired
// token without a refresh cookie returns [ErrTokenExpired]. A request with
// neither cookie returns (nil, nil).
//
//	Docs: docs/refresh.md
func (e *Engine) EnsureFresh(ctx context.Context, storage session.Storage) (*Session, error) {
	if e == nil || e.jwt == nil {
		return nil, ErrEngineNotReady
	}

	var (
		current *Session
		expired bool
	)
	if token, ok := storage.Get(session.AccessCookie); ok {
		sess, err := e.ResolveSession(ctx, token)
		switch {
		case err == nil:
			e.metricInc(MetricSessionResolved)
			if !e.IsTokenExpiring(sess, e.now()) {
				return sess, nil
			}
			current = sess
		case errors.Is(err, ErrTokenExpired):
			e.metricInc(MetricSessionExpired)
			expired = true
		case e.absorbSessionError(ctx, err):
			return nil, nil
		default:
			return nil, err
		}
	}

	refreshToken, ok := storage.Get(session.RefreshCookie)
	if !ok {
		switch {
		case current != nil:
			return current, nil
		case expired:
			return nil, ErrTokenExpired
		default:
			e.metricInc(MetricSessionAbsent)
			return nil, nil
		}
	}

	h, err := e.refresh(ctx, refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, current, fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err), nil)
		if current != nil {
			e.logger.Warn(ctx, "goblog: refresh failed, keeping current token", "subject", current.Subject, "error", err)
			return current, nil
		}
		e.logger.Info(ctx, "goblog: refresh failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err)
	}

	fresh, err := e.ResolveSession(ctx, h.AccessToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, false, current, err, nil)
		return nil, fmt.Errorf("%w: refreshed token rejected: %v", ErrTokenRefreshFailed, err)
	}

	storage.Set(session.AccessCookie, h.AccessToken, e.config.Cookie.AccessMaxAge)
	if h.RefreshToken != "" {
		storage.Set(session.RefreshCookie, h.RefreshToken, e.config.Cookie.RefreshMaxAge)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, fresh, nil, nil)
	return fresh, nil
}

// refresh exchanges refreshToken once per process and once per hand-off
// window across replicas.
func (e *Engine) refresh(ctx context.Context, refreshToken string) (*session.Handoff, error) {
	v, err, shared := e.refreshGroup.Do(session.HashToken(refreshToken), func() (any, error) {
		// One caller's cancellation must not fail the others waiting on it.
		ctx := context.WithoutCancel(ctx)
		ctx, cancel := context.WithTimeout(ctx, e.config.Backend.Timeout)
		defer cancel()

		if e.store != nil {
			h, err := e.store.LoadHandoff(ctx, refreshToken)
			if err != nil {
				e.logger.Warn(ctx, "goblog: refresh handoff lookup failed", "error", err)
			}
			if h != nil {
				e.metricInc(MetricRefreshShared)
				return h, nil
			}
		}

		if err := e.limiter.AllowRefresh(ctx, session.HashToken(refreshToken)); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricRefreshThrottled)
				return nil, ErrRefreshThrottled
			}
			e.logger.Warn(ctx, "goblog: refresh throttle unavailable", "error", err)
		}

		start := e.now()
		pair, err := e.api.Auth().Refresh(ctx, refreshToken).Unwrap()
		e.metricObserve(MetricRefreshLatency, start)
		if err != nil {
			return nil, err
		}

		h := &session.Handoff{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
		if pair.ExpiresIn > 0 {
			h.ExpiresAt = e.now().Add(time.Duration(pair.ExpiresIn) * time.Second)
		}
		if e.store == nil {
			return h, nil
		}

		claimed, err := e.store.ClaimHandoff(ctx, refreshToken, *h, e.config.Session.HandoffTTL)
		if err != nil {
			e.logger.Warn(ctx, "goblog: refresh handoff publish failed", "error", err)
			return h, nil
		}
		if claimed.AccessToken != h.AccessToken {
			e.metricInc(MetricRefreshShared)
		}
		return claimed, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		e.metricInc(MetricRefreshShared)
	}
	return v.(*session.Handoff), nil
}

// AuthorizedContext runs [Engine.EnsureFresh] and returns ctx carrying the
// bearer token for backend calls. A request without a session returns
// [ErrNoSession].
func (e *Engine) AuthorizedContext(ctx context.Context, storage session.Storage) (context.Context, *Session, error) {
	sess, err := e.EnsureFresh(ctx, storage)
	if err != nil {
		return ctx, nil, err
	}
	if sess == nil {
		return ctx, nil, ErrNoSession
	}
	return api.WithToken(ctx, sess.Token), sess, nil
}
