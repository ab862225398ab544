// Package password implements salted one-way password hashing.
//
// # Output format
//
// Argon2id hashes record their cost parameters:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<hash>
//
// The salt is not embedded; it lives next to the hash on the account record
// and is produced by [GenerateSalt]. Scrypt hashes are bare base64 keys.
//
// [Manager.NeedsUpgrade] reports hashes produced by a non-primary algorithm or
// with weaker parameters so the caller can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Whether an empty stored
// hash means "passwordless" is decided by the caller.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other goAccount package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
