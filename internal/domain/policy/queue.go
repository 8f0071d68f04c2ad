package policy

import "time"

// Queue and focus timing rules.
const (
	// QueueAssignMinAge is how long a task must sit in the queue before a
	// manager may force-assign it. Fresh tasks are reserved for
	// self-service pulls.
	QueueAssignMinAge = 24 * time.Hour

	// QueueStaleAfter marks a queued task as stale for escalation.
	QueueStaleAfter = 48 * time.Hour

	// QueueStaleNotifyInterval rate-limits stale-task escalations per task.
	QueueStaleNotifyInterval = 24 * time.Hour

	// FocusAutoPauseAfter is the longest continuous focus session counted;
	// anything beyond it is treated as a forgotten stopwatch.
	FocusAutoPauseAfter = 4 * time.Hour
)
