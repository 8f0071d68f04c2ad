package service

import "errors"

// Caller-visible rejections of the lifecycle, queue, focus, shop and
// rollover operations. All are terminal: the caller must change something
// (pick another task, free up WIP, wait) before retrying. None of them is
// a system fault.
var (
	// ErrTaskAlreadyTaken means another actor won the race for an in_queue
	// task, or the task left the queue before the operation started.
	ErrTaskAlreadyTaken = errors.New("task is already taken")

	// ErrInvalidTransition means the task's current status does not permit
	// the attempted operation.
	ErrInvalidTransition = errors.New("operation not allowed in current task status")

	// ErrLeagueTooLow means the actor's league is below the task's gate.
	ErrLeagueTooLow = errors.New("league too low for this task")

	// ErrWIPLimitReached means the user already holds their maximum number
	// of in_progress tasks.
	ErrWIPLimitReached = errors.New("work-in-progress limit reached")

	// ErrNotAssignee means the actor is not the task's assignee.
	ErrNotAssignee = errors.New("only the assignee may perform this operation")

	// ErrSelfValidation means the validator is the task's own assignee.
	ErrSelfValidation = errors.New("self-validation is forbidden")

	// ErrRejectionCommentRequired means a rejection was attempted without
	// an explanation.
	ErrRejectionCommentRequired = errors.New("rejection requires a comment")

	// ErrQueueAgeTooLow means a manager tried to force-assign a task that
	// has not yet sat in the queue for the minimum age.
	ErrQueueAgeTooLow = errors.New("task must stay in queue longer before it can be assigned")

	// ErrNotManager means the operation requires a teamlead or admin.
	ErrNotManager = errors.New("operation requires a teamlead or admin role")

	// ErrNotAdmin means the operation requires an admin.
	ErrNotAdmin = errors.New("operation requires an admin role")

	// ErrUserInactive means the target user is deactivated.
	ErrUserInactive = errors.New("user is deactivated")

	// ErrParentTaskNotDone means a bugfix was reported against a task that
	// has not been completed.
	ErrParentTaskNotDone = errors.New("bugfix parent task must be done")

	// ErrNotFocused means a pause was attempted on a task with no active
	// focus stopwatch.
	ErrNotFocused = errors.New("task is not in focus")

	// ErrInsufficientKarma means the karma balance does not cover a
	// purchase.
	ErrInsufficientKarma = errors.New("insufficient karma balance")

	// ErrPurchaseLimitReached means the item's monthly purchase cap is
	// exhausted for this user.
	ErrPurchaseLimitReached = errors.New("monthly purchase limit reached for this item")

	// ErrPurchaseNotPending means an approval was attempted on a purchase
	// that is not pending.
	ErrPurchaseNotPending = errors.New("purchase is not pending")

	// ErrPeriodAlreadyClosed means a rollover was attempted for a period
	// that already has snapshots. Duplicate rollovers are rejected, never
	// silently skipped.
	ErrPeriodAlreadyClosed = errors.New("period is already closed")

	// ErrItemInactive means an inactive catalog or shop item was selected.
	ErrItemInactive = errors.New("item is not active")

	// ErrEmptyEstimate means the calculator received no resolvable lines.
	ErrEmptyEstimate = errors.New("estimate must contain at least one catalog item")
)
