// Package cryptoutils provides the API key primitives used when provisioning
// Ergo devnet nodes.
//
// An Ergo node never stores its API key. Its configuration carries only
// apiKeyHash, and every request header api_key is hashed and compared against it.
// This package produces both halves of that pair:
//
//   - GenerateAPISecret: 64 lowercase hex symbols from crypto/rand
//   - HashAPISecret: BLAKE2b-256 of the raw secret bytes, lowercase hex
//
// # Canonical form
//
// The key file content is the secret, byte for byte. Nothing is trimmed when a
// key file is read back. CheckSecret rejects secrets with surrounding whitespace
// before they are written, so a newline added to a key file by hand shows up as a
// verification mismatch instead of being hidden.
//
// # Sealing
//
// SealSecret and OpenSecret protect escrowed copies of secrets with a passphrase
// (Argon2id key derivation, AES-256-GCM).
//
// # Hash stability
//
// Changing the digest invalidates every apiKeyHash already written to the fleet
// and requires rotating all nodes.
package cryptoutils
