// Package live is the session-scoped real-time synchronization engine:
// it tracks which connections are attached to which bridge and owns
// exactly one polling task per bridge with at least one subscriber.
//
// The registry and coordinator share one invariant: a polling task exists
// for a bridge if and only if its subscriber count is positive. Attach and
// detach edges are evaluated under the coordinator's lock so a task can
// never be stopped in the same instant a new subscriber arrives.
//
// Each task is a goroutine: an immediate first poll (so a new subscriber
// gets state without waiting a full interval), then fixed-interval ticks.
// Polls for one bridge are strictly sequential; bridges are independent.
// A poll failure is logged and retried next tick - it never stops the
// task, advances the cached snapshot, or touches other bridges.
package live
