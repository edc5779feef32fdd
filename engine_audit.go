package goBlog

import (
	"context"
	"errors"
)

const (
	auditEventSessionRevoked  = "session_revoked"
	auditEventSessionInvalid  = "session_invalid"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshFailure  = "refresh_failure"
	auditEventLogin           = "login"
	auditEventLogout          = "logout"
	auditEventGuardDenied     = "guard_denied"
	auditEventGuardForbidden  = "guard_forbidden"
	auditEventRevocationError = "revocation_unavailable"
)

// criticalAuditEvents wait for buffer room instead of dropping at once.
var criticalAuditEvents = []string{
	auditEventSessionRevoked,
	auditEventSessionInvalid,
	auditEventRefreshFailure,
	auditEventRevocationError,
}

// AuditErrorCode is the stable error classification written to audit events.
type AuditErrorCode string

const (
	auditErrInvalidToken     AuditErrorCode = "invalid_token"
	auditErrExpiredToken     AuditErrorCode = "expired_token"
	auditErrRevokedToken     AuditErrorCode = "revoked_token"
	auditErrRefreshFailed    AuditErrorCode = "refresh_failed"
	auditErrRefreshThrottled AuditErrorCode = "refresh_throttled"
	auditErrNoSession        AuditErrorCode = "no_session"
	auditErrForbidden        AuditErrorCode = "forbidden"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
	auditErrContextExpired   AuditErrorCode = "context_done"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	sess *Session,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		RequestID: requestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Path:      pathFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if sess != nil {
		event.Subject = sess.Subject
		event.TokenID = sess.TokenID
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenRevoked):
		return auditErrRevokedToken
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrRefreshThrottled):
		return auditErrRefreshThrottled
	case errors.Is(err, ErrTokenRefreshFailed):
		return auditErrRefreshFailed
	case errors.Is(err, ErrNoSession):
		return auditErrNoSession
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrRevocationUnavailable):
		return auditErrUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrContextExpired
	default:
		return auditErrInternal
	}
}
