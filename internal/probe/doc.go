// Package probe samples host and process state for the health and info
// endpoints. Every read is best-effort: failures are reported inside the
// returned structs and never abort the caller.
package probe
