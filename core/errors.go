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


package core

import "errors"

// Stream and parse errors
var (
	// ErrStreamFraming indicates the page buffer outgrew its ceiling without
	// yielding a complete element. The input is corrupt or misaligned.
	ErrStreamFraming = errors.New("page stream framing error")

	// ErrMalformedPage indicates a single page element could not be parsed.
	ErrMalformedPage = errors.New("malformed page")
)

// Index errors
var (
	// ErrMalformedIndex indicates an index line is not offset:id:title.
	ErrMalformedIndex = errors.New("malformed index line")

	// ErrUnsortedIndex indicates a byte offset decreased while scanning the index.
	ErrUnsortedIndex = errors.New("index byte offsets are not sorted")

	// ErrInvalidBlocks indicates a block list violates ordering or contiguity.
	ErrInvalidBlocks = errors.New("invalid block layout")
)

// Checkpoint and resume errors
var (
	// ErrCheckpointNotFound indicates there is no checkpoint file yet.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrMalformedCheckpoint indicates a checkpoint file exists but is unreadable or incomplete.
	ErrMalformedCheckpoint = errors.New("malformed checkpoint")

	// ErrAnchorNotFound indicates the checkpoint's last article never appeared in the dump.
	ErrAnchorNotFound = errors.New("resume anchor article not found in dump")
)

// Run errors
var (
	// ErrMissingBlockResult indicates the reader lost track of an in-flight block.
	// It is an internal invariant violation.
	ErrMissingBlockResult = errors.New("missing in-flight block result")

	// ErrInterrupted indicates the run stopped on request after saving its checkpoint.
	ErrInterrupted = errors.New("ingestion interrupted")

	// ErrInvalidTextUnit indicates a TextUnit failed validation.
	ErrInvalidTextUnit = errors.New("invalid text unit")
)
