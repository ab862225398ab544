package goAccount

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/internal/audit"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginRateLimited         = "login_rate_limited"
	auditEventRecoveryRequest          = "recovery_request"
	auditEventRecoveryConfirm          = "recovery_confirm"
	auditEventRecoveryCodeRejected     = "recovery_code_rejected"
	auditEventRecoveryRateLimited      = "recovery_rate_limited"
	auditEventAccountCreated           = "account_created"
	auditEventAccountCreationFailure   = "account_creation_failure"
	auditEventAccountCreationDuplicate = "account_creation_duplicate"
	auditEventAccountStatusChange      = "account_status_change"
	auditEventAccountRoleChange        = "account_role_change"
	auditEventAccountDeleted           = "account_deleted"
	auditEventPasswordChange           = "password_change"
	auditEventProfileChange            = "profile_change"
)

// AuditErrorCode is the stable error label recorded on failed audit events.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrCodeInvalid        AuditErrorCode = "code_invalid"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrSelfAction         AuditErrorCode = "self_action"
	auditErrFeatureDisabled    AuditErrorCode = "feature_disabled"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	handle string,
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

	event := audit.Event{
		EventType: eventType,
		Handle:    handle,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if a, ok := actorFromContext(ctx); ok {
		event.Actor = a.handle
		if a.operator {
			event.Actor = "operator"
		}
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidHandle):
		return auditErrInvalidInput
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRecoveryRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAccountNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrRecoveryCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrSelfAction),
		errors.Is(err, ErrFallbackAccount):
		return auditErrSelfAction
	case errors.Is(err, ErrRecoveryDisabled):
		return auditErrFeatureDisabled
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrLimiterUnavailable),
		errors.Is(err, ErrRecoveryUnavailable),
		errors.Is(err, ErrPurgeFailed):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
