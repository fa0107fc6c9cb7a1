// Package store provides durable storage for trace-log batches.
//
// Batches arrive unordered and possibly duplicated; the store is the
// stitching point. Writes are idempotent (ON CONFLICT DO NOTHING keyed
// by batch id) so re-importing the same export file is safe, and reads
// return batches in deterministic (timestamp, arrival) order so a parse
// over stored batches reproduces byte-identical results.
package store
