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

// Package ai provides abstractions for the AI services used by khabar.
//
// This package defines interfaces for text embeddings and topic modeling.
// The feed tracker, semantic scorer and clustering coordinator depend on
// these abstractions rather than on concrete implementations.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text
//   - TopicModel: Groups documents into topics and names them with keywords
//   - AIProvider: Aggregates both services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Embeddings from an OpenAI-compatible API (Ollama, vLLM, ...)
//   - ai/topics: In-process topic model (spherical k-means + c-TF-IDF)
//   - ai/mock: Deterministic test doubles
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockTopicModel) return CONCRETE types so tests can inject behavior
// and assert on call counts. mock.NewMockProvider returns the interface and
// exposes GetMockEmbedder()/GetMockTopicModel() for assertions.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithEmbeddingModel("all-minilm"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Ceasefire talks resume")
//	topics, err := provider.TopicModel().Fit(ctx, texts, vectors)
package ai
