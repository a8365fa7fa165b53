// Package mock provides test doubles for the ai package interfaces.
//
// MockEmbedder produces deterministic unit-length vectors derived from the
// text hash, so tests can run without an embedding service. Behavior can be
// overridden through function fields:
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("service unavailable")
//	}
//	// ...
//	calls := embedder.CallCount()
package mock
