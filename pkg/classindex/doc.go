// Package classindex maintains the per-document CSS class token index.
//
// The index maps a document identity to the set of class tokens found in that
// document's most recent content. Entries come from two sources: files read
// from disk and unsaved text held by an editor. The union of all entries is
// computed on each query and never triggers I/O.
//
// # Architecture
//
//	 lifecycle events          completion queries
//	        │                         │
//	┌───────▼────────┐        ┌───────▼───────┐
//	│ ScanAndStore / │        │  AllTokens    │
//	│ Remove         │        │  (union)      │
//	└───────┬────────┘        └───────▲───────┘
//	        │                         │
//	        └──────► Identity → tokens.Set ◄──┘
//
// # Usage
//
//	idx := classindex.New(classindex.WithWorkers(8))
//	stats := idx.BulkInitialize(ctx, disk, editor)
//	idx.ScanAndStore(id, text)
//	all := idx.AllTokens()
//
// # Thread Safety
//
// Index is safe for concurrent use. Stored sets are never mutated after they
// are published, so a reader observes each document either before or after
// an update, never halfway through it.
package classindex
