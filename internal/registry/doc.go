// Package registry is the explicit catalog of declared graph functions and
// interfaces for one application instance. Nothing in the engine reads
// process-wide state: the registry is constructed, populated, validated,
// and then passed to blueprint building and execution.
package registry
