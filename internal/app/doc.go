// Package app wires the application together: it owns the configuration,
// builds the logger and registry, loads workflow definitions, and runs a
// root call through the blueprint pipeline end to end.
package app
