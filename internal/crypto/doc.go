// Package crypto implements the safe envelope format.
//
// Keys are derived from a passphrase with a single SHA-256 pass; the digest
// is used directly as an AES-256 key. There is no salt and no stretching, so
// the same passphrase always yields the same key and envelopes produced by
// older versions keep decrypting.
//
// An envelope is the random 16-byte IV followed by the AES-CBC ciphertext of
// the PKCS#7 padded plaintext:
//
//	[ 0..16)  IV
//	[16..end) AES-CBC(plaintext, key, IV)
//
// Decryption never slices the IV out. The whole envelope is run through CBC
// decryption under a throwaway random IV and the first output block is
// dropped: block 1 then chains on the stored IV and comes out as the first
// plaintext block. Encrypt and decrypt must stay paired with this layout.
//
// The format carries no MAC. A wrong key and a corrupted envelope are
// indistinguishable and both surface as ErrDecrypt.
//
// Key material lives in a memguard enclave and is only unsealed for the
// duration of a single cipher operation. A CipherKey is immutable and safe
// for concurrent use.
package crypto
