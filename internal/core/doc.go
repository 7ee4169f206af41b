// Package core provides the safe tool operations on top of the envelope
// cipher.
//
// Core operations include:
//   - EncryptText/DecryptText: text envelopes in data URI form
//   - EncryptFiles/DecryptFiles: binary envelopes written as -encrypted.bin files
//   - StoreRecord/ShowRecord/RemoveRecord/ListRecords/DiffRecord: named
//     encrypted text kept in a bbolt store
//   - SaveKey/ImportKey/ForgetKey/ExportKey: cipher key cached in the OS keyring
//
// Existing output files are handled by a conflict strategy:
//   - Keep local version
//   - Overwrite with the new output
//   - Edit merged (opens $EDITOR with git-style conflict markers)
//   - Keep both (saves the new output as .from-safe)
package core
