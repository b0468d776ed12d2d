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

package ingestion

import (
	"context"

	"github.com/poiesic/khabar/core"
)

// processor is an internal interface for handling newly ingested items.
// Implementations handle one follow-up task such as clustering or notification.
type processor interface {
	// process handles items that were just inserted into the store, in feed order.
	process(ctx context.Context, items ...*core.Item) error
}
