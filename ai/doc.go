// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai defines the embedding collaborator used when ingested text units
// are stored locally.
//
// The ingestion core never talks to an embedding service directly. The
// embedstore package depends on the Embedder interface declared here, and
// concrete implementations live in sub-packages:
//
//   - ai/openai: OpenAI-compatible embedding APIs (Ollama, LocalAI, vLLM, OpenAI)
//   - ai/mock: deterministic test doubles
//
// Public constructors such as openai.NewEmbedder return the interface type.
// Test doubles return concrete types so tests can inject behavior and inspect
// call counts.
//
//	cfg := ai.NewConfig(ai.WithEmbeddingModel("nomic-embed-text"))
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vectors, err := embedder.EmbedTexts(ctx, []string{"first paragraph", "second paragraph"})
package ai
