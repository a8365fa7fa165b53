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

import (
	"fmt"
	"strings"
)

// ValidateTextUnit validates a TextUnit before it is handed to a sink.
//
// Validation rules:
//   - ArticleID must not be empty
//   - Content must not be blank
//   - Position must not be negative
//
// SectionName may be empty; it denotes the introduction.
func ValidateTextUnit(u TextUnit) error {
	if u.ArticleID == "" {
		return fmt.Errorf("%w: empty article id", ErrInvalidTextUnit)
	}
	if strings.TrimSpace(u.Content) == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidTextUnit)
	}
	if u.Position < 0 {
		return fmt.Errorf("%w: negative position %d", ErrInvalidTextUnit, u.Position)
	}
	return nil
}

// ValidateBlocks checks that blocks are in strictly increasing start order,
// that each block ends one byte before the next begins, and that only the
// last block runs to end of file.
func ValidateBlocks(blocks []Block) error {
	for i, b := range blocks {
		if b.ArticleCount < 1 {
			return fmt.Errorf("%w: block at %d has no articles", ErrInvalidBlocks, b.ByteOffset)
		}
		last := i == len(blocks)-1
		if last {
			if !b.ToEOF() {
				return fmt.Errorf("%w: last block at %d does not run to end of file", ErrInvalidBlocks, b.ByteOffset)
			}
			continue
		}
		next := blocks[i+1]
		if next.ByteOffset <= b.ByteOffset {
			return fmt.Errorf("%w: block offsets %d and %d out of order", ErrInvalidBlocks, b.ByteOffset, next.ByteOffset)
		}
		if b.EndOffset != next.ByteOffset-1 {
			return fmt.Errorf("%w: block at %d ends at %d, next starts at %d",
				ErrInvalidBlocks, b.ByteOffset, b.EndOffset, next.ByteOffset)
		}
	}
	return nil
}
