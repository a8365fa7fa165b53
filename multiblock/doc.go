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


// Package multiblock decodes several dump blocks concurrently while
// delivering their text units in block order.
//
// The Reader keeps at most N block computations in flight. It waits only for
// the next block in order; as soon as that block finishes, the block N
// positions ahead is submitted, so a slow block never holds back work on the
// blocks behind it. Units and completion callbacks are delivered on the
// caller's goroutine.
package multiblock
