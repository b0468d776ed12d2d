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

// Package search scores stored items against a free-text query.
//
// The Scorer combines two signals:
//   - Semantic similarity: cosine similarity between the query embedding
//     and each item's embedding
//   - Exact word overlap: the share of query words found in the title and
//     in the summary, weighted per field
//
// The combined score is max(semantic, semantic + overlap*0.3), so word
// overlap can only raise a result. Field weights default to 0.7 for the
// title and 0.3 for the summary; callers may supply both, which are then
// normalized to sum to 1.
package search
