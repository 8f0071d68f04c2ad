// Package service contains the application use cases: the task lifecycle,
// the Q-point wallet and ledger, the queue view, focus time tracking, the
// period rollover, the karma shop and notifications. It orchestrates domain
// objects and the repositories defined in internal/store.
//
// Services receive their dependencies through constructor injection and
// never depend on concrete infrastructure. Operations that move Q points
// run inside a single database transaction with the affected user row
// locked, so the ledger and the cached wallet balances can never diverge.
//
// Every service carries an injectable clock (WithClock) so tests can pin
// time-dependent behavior: due dates, queue aging, focus accumulation and
// period boundaries.
package service
