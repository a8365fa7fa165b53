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


// Package dump reads encyclopedia XML exports.
//
// A dump is reached through a Source (a local file or an S3 object) that can
// open arbitrary inclusive byte ranges. The bytes of a range are decompressed
// with the codec implied by the dump's file extension and fed to a Streamer,
// which yields one core.Page per <page> element while holding at most one
// partial element in memory.
//
// # Usage
//
//	src, err := dump.Open(ctx, "enwiki-latest-pages-articles-multistream.xml.bz2")
//	if err != nil {
//	    return err
//	}
//	rc, err := dump.OpenStream(ctx, src, 0, -1)
//	if err != nil {
//	    return err
//	}
//	defer rc.Close()
//
//	err = dump.NewStreamer(rc).ForEach(ctx, func(p core.Page) error {
//	    ...
//	})
//
// Multistream dumps are made of independently compressed blocks; opening the
// range of a single block with OpenStream decodes just that block.
package dump
