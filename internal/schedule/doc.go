// Package schedule executes a blueprint against a store and a driver.
//
// The scheduler maintains a ready set: calls whose dependencies are all
// satisfied. Ready calls are checked against the store first (a hit is a
// memoized completion with no execution), otherwise their symbolic
// arguments are resolved from the store and the call is handed to the
// driver. The driver decides real concurrency; the scheduler only
// guarantees dependency order and never blocks dispatch on an in-flight
// call. Results are written to the store before dependents are released,
// so a crashed or failed run leaves only complete, reusable entries
// behind.
package schedule
