// Package secretbox seals small account secrets (TOTP seeds, backup codes)
// with AES-256-GCM under a key derived once from the service-wide secret.
//
// # Architecture boundaries
//
// secretbox knows nothing about what it encrypts. Callers hand it plaintext
// bytes and get back a self-describing [Blob]; the nonce always travels with
// the ciphertext.
//
// # What this package must NOT do
//
//   - Log, return, or otherwise expose the derived key.
//   - Return plaintext from a failed authentication check. A tampered or
//     wrong-key blob fails with [ErrDecrypt], never with garbage output.
package secretbox
