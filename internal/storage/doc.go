// Package storage provides the BBolt database behind the named-record store.
//
// Database structure uses two buckets:
//   - config: format version, timestamps and the store ID
//   - records: record name -> JSON encoded Record
//
// Records hold text envelopes, which are already ciphertext, so the store
// itself is not encrypted. Listing records never needs a passphrase.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
