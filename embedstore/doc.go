// Package embedstore is the embed-and-store collaborator at the end of an
// ingestion run.
//
// A Sink receives batches of text units, generates embeddings through an
// ai.Embedder with bounded exponential-backoff retry, normalizes the vectors to
// unit length for cosine similarity, and upserts them into a
// storage.UnitRepository keyed by content-derived unit IDs. Redelivering a batch
// after a resume therefore leaves the store unchanged.
package embedstore
