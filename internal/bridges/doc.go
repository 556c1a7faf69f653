// Package bridges defines the capability interface every upstream service
// is driven through, and the closed set of variants behind it.
//
// A Source is the narrow contract the polling engine sees: connect, fetch
// a snapshot, report connectivity. The concrete variants are selected from
// a lookup table keyed by service id ("hue", "hive") plus a demo flag -
// never by runtime type inspection. The vendor HTTP clients themselves
// live behind registered factories; the demo variant ships here as a
// complete synthetic implementation.
package bridges
