// Package store defines the account record and the credential store contract
// shared by every backend.
//
// # Backends
//
//   - store/memory: map guarded by a RWMutex, with optional JSON file persistence.
//   - store/redisstore: one JSON value per key under a prefix, listed with SCAN.
//   - store/postgres: an accounts table managed by embedded goose migrations.
//
// # Consistency
//
// Records are independent. No operation spans more than one handle, and Set is
// a full overwrite, so two concurrent read-modify-write cycles on the same
// handle from different processes can lose an update. The engine serialises
// mutations per handle inside one process.
//
// # What this package must NOT do
//
//   - Hash passwords or interpret PasswordHash beyond emptiness.
//   - Import goAccount or any internal package.
package store
