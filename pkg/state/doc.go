// Package state persists registry snapshots.
//
// A Store loads and saves one msr.Snapshot per Ref. The registry itself stays
// persistence agnostic: Checkpoint exports a live registry through a Store
// and Restore rebuilds one from it.
//
// Data flow:
//
//	msr.Registry.Snapshot() -> Checkpoint -> Store.Save
//	Store.Load -> Restore -> msr.Restore(...) -> *msr.Registry
//
// Concurrency control:
//
//	Meta.ETag is replaced on every checkpoint. Passing the last seen ETag to
//	Checkpoint makes the save fail with ErrETagMismatch when another writer
//	checkpointed in between.
package state
