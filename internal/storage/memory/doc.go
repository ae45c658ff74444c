// Package memory provides an in-process TokenStore.
//
// Records live in a sharded concurrent map keyed by secret hash, with
// secondary indexes by token id and by owner. Stored records are never
// mutated in place: Claim swaps in an updated copy under the shard lock,
// which is what makes it the single atomic transition.
//
// Contents are lost on restart; use the badger engine for durability.
package memory
