// Package core defines the shared data model of the research workflow: the
// append-only Message log, CapabilityCall records and the Session container
// that owns them. All other packages communicate through these types.
package core
