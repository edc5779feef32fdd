package goBlog

import (
	"context"
	"sync"

	"github.com/MrEthical07/goBlog/api"
	"github.com/MrEthical07/goBlog/query"
	"github.com/MrEthical07/goBlog/resource"
	"github.com/MrEthical07/goBlog/session"
	"golang.org/x/sync/errgroup"
)

// AuthState loads the role and profile of sess concurrently through the
// query cache and composes them. A nil session is logged out.
//
// Error holds the first failure that matters: a role failure always, a
// profile failure only for a fully registered role.
//
//	Docs: docs/auth_state.md
func (e *Engine) AuthState(ctx context.Context, sess *Session) AuthState {
	if sess == nil {
		return AuthState{}
	}
	ctx = api.WithToken(ctx, sess.Token)
	scope := e.Scope(sess)

	var (
		role       Role
		profile    Profile
		profileErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		role, err = scope.Role(ctx)
		return err
	})
	g.Go(func() error {
		profile, profileErr = scope.Profile(ctx)
		return nil
	})
	roleErr := g.Wait()

	state := composeAuthState(role, roleErr, profile, profileErr)
	if state.Error != nil {
		e.metricInc(MetricAuthStateError)
		e.logger.Warn(ctx, "goblog: auth state incomplete", "subject", sess.Subject, "error", state.Error)
	}
	return state
}

// composeAuthState applies the login and pending-registration rules.
func composeAuthState(role Role, roleErr error, profile Profile, profileErr error) AuthState {
	if roleErr != nil {
		return AuthState{Error: roleErr}
	}
	state := AuthState{
		IsLoggedIn: role != RoleNone,
		Role:       role,
	}
	switch role {
	case RoleNone:
	case RolePending:
		state.NeedsProfileCompletion = true
	default:
		if profileErr != nil {
			state.Error = profileErr
			break
		}
		p := profile
		state.UserProfile = &p
	}
	return state
}

// PeekAuthState composes the auth state from the cache alone. IsLoading is
// set while an entry has no data and a fetch is in flight.
func (e *Engine) PeekAuthState(subject string) AuthState {
	if subject == "" {
		return AuthState{}
	}
	keys := resource.AuthKeys(subject)
	roleState := e.cache.Peek(keys.Role())
	profileState := e.cache.Peek(keys.Profile())
	loading := (!roleState.HasData && roleState.Fetching) || (!profileState.HasData && profileState.Fetching)

	role, hasRole, roleErr := query.Get[Role](e.cache, keys.Role())
	if !hasRole {
		return AuthState{IsLoading: loading, Error: roleState.Err}
	}
	profile, hasProfile, profileErr := query.Get[Profile](e.cache, keys.Profile())
	if !hasProfile {
		profileErr = profileState.Err
	}

	state := composeAuthState(role, roleErr, profile, profileErr)
	if !hasProfile {
		state.UserProfile = nil
	}
	state.IsLoading = loading
	return state
}

// Login writes the role and profile entries for subject directly, without a
// backend round-trip. It is used right after a successful sign-in redirect.
func (e *Engine) Login(ctx context.Context, subject string, profile *Profile, role Role) error {
	if e == nil || e.cache == nil {
		return ErrEngineNotReady
	}
	keys := resource.AuthKeys(subject)
	if err := e.cache.Set(keys.Role(), role); err != nil {
		return err
	}
	if profile != nil {
		if err := e.cache.Set(keys.Profile(), *profile); err != nil {
			return err
		}
	} else {
		e.cache.Remove(keys.Profile())
	}

	e.metricInc(MetricLogin)
	e.emitAudit(ctx, auditEventLogin, true, &Session{Subject: subject}, nil, func() map[string]string {
		return map[string]string{"role": string(role)}
	})
	return nil
}

// Logout ends sess.
//
// The backend logout call is best-effort: its failure is logged and never
// blocks the local cleanup. Identity-scoped cache entries are evicted, the
// token id is revoked when a revocation store is configured, and both session
// cookies are deleted, in every case. A nil sess still clears the cookies.
//
//	Docs: docs/session.md
func (e *Engine) Logout(ctx context.Context, sess *Session, storage session.Storage) {
	if e == nil {
		return
	}

	if sess != nil {
		if _, err := e.api.Auth().Logout(api.WithToken(ctx, sess.Token)).Unwrap(); err != nil {
			e.metricInc(MetricLogoutBackendFailure)
			e.logger.Warn(ctx, "goblog: backend logout failed", "subject", sess.Subject, "error", err)
		}

		evicted := e.resources.EvictIdentity(sess.Subject)
		e.logger.Debug(ctx, "goblog: evicted identity cache", "subject", sess.Subject, "entries", evicted)

		if e.store != nil && e.config.Session.RevocationEnabled && sess.TokenID != "" {
			if err := e.store.Revoke(ctx, sess.TokenID, sess.ExpiresAt); err != nil {
				e.logger.Warn(ctx, "goblog: revoke failed", "subject", sess.Subject, "error", err)
			}
		}
	}

	if storage != nil {
		storage.Delete(session.AccessCookie)
		storage.Delete(session.RefreshCookie)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, sess, nil, nil)
}

// RefetchAuthStatus reloads the role and profile of sess concurrently. Each
// query settles on its own: a failure in one never cancels the other.
func (e *Engine) RefetchAuthStatus(ctx context.Context, sess *Session) RefetchResult {
	var res RefetchResult
	if sess == nil {
		res.Role.Err = ErrNoSession
		res.Profile.Err = ErrNoSession
		return res
	}
	ctx = api.WithToken(ctx, sess.Token)
	scope := e.Scope(sess)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Role = settle(scope.RefetchRole(ctx))
	}()
	go func() {
		defer wg.Done()
		res.Profile = settle(scope.RefetchProfile(ctx))
	}()
	wg.Wait()

	return res
}

func settle[T any](v T, err error) Settlement[T] {
	if err != nil {
		return Settlement[T]{Err: err}
	}
	return Settlement[T]{Value: v}
}
