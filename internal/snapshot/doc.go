// Package snapshot defines the aggregated bridge state model and the
// change detector that turns consecutive snapshots into deltas.
//
// A Snapshot is the full known state of one bridge at one point in time:
// summary counters, rooms, the devices within them, and named external
// service sub-states. Snapshots are value types - the polling engine keeps
// at most two per bridge (previous and current) and discards older ones
// immediately after diffing.
//
// Diff compares snapshots section by section using structural value
// equality, never serialised-JSON comparison, so key ordering can never
// produce a false positive. A changed section is emitted as one Delta
// carrying the entire current value of that section (full-replace
// semantics), which keeps clients trivially convergent.
package snapshot
