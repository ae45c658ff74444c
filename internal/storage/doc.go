// Package storage provides the TokenStore engines and the factory that
// selects one from configuration.
//
// Two engines exist:
//
//   - memory: sharded in-process maps (see internal/storage/memory)
//   - badger: durable, encrypted-at-rest store on Badger v3
//
// Both implement the atomic Claim required by the core: the memory
// engine under a shard lock, the badger engine as a conflict-detecting
// read-modify-write transaction.
package storage
