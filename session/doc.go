// Package session provides SessionStore implementations. The in-memory store
// is suitable for tests and single-process deployments; the JSON checkpoint
// surface allows in-flight or completed runs to be inspected by session ID.
package session
