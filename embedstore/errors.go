package embedstore

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrRepositoryRequired is returned when a Sink is created without a repository.
	ErrRepositoryRequired = errors.New("unit repository is required")

	// ErrEmbedderRequired is returned when a Sink is created without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmbeddingMismatch is returned when the embedder returns a different
	// number of vectors than texts it was given.
	ErrEmbeddingMismatch = errors.New("embedding count mismatch")

	// ErrInvalidConfig is returned for an unusable Config.
	ErrInvalidConfig = errors.New("invalid embedstore config")
)
