package api

import (
	"errors"
	"net/http"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/service"
	"github.com/SemenBogdanov/dpms-system/internal/service/auth"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrNotManager),
		errors.Is(err, service.ErrNotAdmin),
		errors.Is(err, service.ErrNotAssignee),
		errors.Is(err, service.ErrSelfValidation),
		errors.Is(err, service.ErrLeagueTooLow):
		return http.StatusForbidden

	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Invalid-state and policy-violation rejections
	case errors.Is(err, service.ErrTaskAlreadyTaken),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrWIPLimitReached),
		errors.Is(err, service.ErrRejectionCommentRequired),
		errors.Is(err, service.ErrQueueAgeTooLow),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrParentTaskNotDone),
		errors.Is(err, service.ErrNotFocused),
		errors.Is(err, service.ErrInsufficientKarma),
		errors.Is(err, service.ErrPurchaseLimitReached),
		errors.Is(err, service.ErrPurchaseNotPending),
		errors.Is(err, service.ErrPeriodAlreadyClosed),
		errors.Is(err, service.ErrItemInactive),
		errors.Is(err, service.ErrEmptyEstimate),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidPeriod),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, service.ErrTaskAlreadyTaken):
		return "Task is already taken"
	case errors.Is(err, service.ErrInvalidTransition):
		return "Operation not allowed in the task's current status"
	case errors.Is(err, service.ErrLeagueTooLow):
		return "Your league is too low for this task"
	case errors.Is(err, service.ErrWIPLimitReached):
		return "Work-in-progress limit reached"
	case errors.Is(err, service.ErrNotAssignee):
		return "Only the assignee may do this"
	case errors.Is(err, service.ErrSelfValidation):
		return "You cannot validate your own task"
	case errors.Is(err, service.ErrRejectionCommentRequired):
		return "A rejection requires a comment"
	case errors.Is(err, service.ErrQueueAgeTooLow):
		return "The task must stay in the queue longer before assignment"
	case errors.Is(err, service.ErrNotManager),
		errors.Is(err, service.ErrNotAdmin):
		return "Insufficient permissions"
	case errors.Is(err, service.ErrUserInactive):
		return "The user is deactivated"
	case errors.Is(err, service.ErrParentTaskNotDone):
		return "A bugfix can only be reported against a completed task"
	case errors.Is(err, service.ErrNotFocused):
		return "The task is not in focus"
	case errors.Is(err, service.ErrInsufficientKarma):
		return "Not enough karma"
	case errors.Is(err, service.ErrPurchaseLimitReached):
		return "Monthly purchase limit reached for this item"
	case errors.Is(err, service.ErrPurchaseNotPending):
		return "The purchase is not pending"
	case errors.Is(err, service.ErrPeriodAlreadyClosed):
		return "The period is already closed"
	case errors.Is(err, service.ErrItemInactive):
		return "The item is not available"
	case errors.Is(err, service.ErrEmptyEstimate):
		return "The estimate must contain at least one catalog item"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrCatalogItemNotFound):
		return "Catalog item not found"
	case errors.Is(err, store.ErrShopItemNotFound):
		return "Shop item not found"
	case errors.Is(err, store.ErrPurchaseNotFound):
		return "Purchase not found"
	case errors.Is(err, store.ErrNotificationNotFound):
		return "Notification not found"
	case store.IsNotFoundError(err):
		return "Not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return "Invalid request data"
	case errors.Is(err, domain.ErrInvalidPeriod):
		return "Period must be formatted YYYY-MM"

	default:
		return "An unexpected error occurred"
	}
}

// respondServiceError is the single exit for handler failures: it maps the
// error to a status code and safe message and logs the original.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
