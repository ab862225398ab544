// Package purge removes data owned by a deleted account. Both purgers satisfy
// goAccount.DataPurger and are invoked only after the account record is gone.
//
//   - [Dir] removes <root>/<handle> from a local directory tree.
//   - [S3] removes every object under <prefix><handle>/ in a bucket.
//
// A missing directory or an empty prefix is not an error.
package purge
