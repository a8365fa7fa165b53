// Package ingestion drives a dump through extraction into a Sink while
// keeping a durable checkpoint of how far it got.
//
// A Pipeline runs in one of two modes:
//   - sequential: the whole dump is decompressed and parsed as one stream, and
//     a resume.Filter skips everything up to and including the checkpoint's
//     anchor article;
//   - parallel: a block index is compacted into byte-range blocks, blocks
//     already recorded in the checkpoint are dropped, and the remainder are
//     decoded concurrently by a multiblock.Reader that still yields units in
//     block order.
//
// Units are batched and handed to the Sink. The batch is always flushed before
// the checkpoint is written, so a saved checkpoint never claims units the sink
// has not accepted. Delivery is at-least-once: units of an article (or block)
// that was in progress when a run stopped are delivered again on resume.
package ingestion
