// Package agent implements the bounded reasoning units of the research
// workflow. An Agent wraps one language model call chain plus an optional
// capability subset; the Roster is the declarative, validated table of the
// agents participating in a run.
package agent
