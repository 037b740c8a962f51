// Package model defines the provider-neutral interface for language model
// backends plus the normalized request/response structures exchanged with
// them. Concrete adapters live in subpackages (anthropic, openai); MockModel
// provides a deterministic in-memory backend for tests.
package model
