// Package storage escrows node API secrets in one or more pluggable backends.
//
// A freshly generated secret exists in plaintext only in the node's key file.
// Escrow keeps a copy elsewhere so a lost or corrupted key file can be restored
// without rotating the key on every client that uses it.
//
// # Location URI Format
//
// Backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/ergo-escrow/
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=http://minio:9000
//   - vault://vault.example.com:8200/secret/ergo-devnet?token_env=VAULT_TOKEN
//
// Vault URIs use TLS unless tls=false is given. The token is read from the
// environment variable named by token_env (VAULT_TOKEN by default). A TLS
// client certificate can be supplied with cert= and key= file parameters.
//
// # Naming
//
// Secrets are stored under the key file name of the node, e.g. "ergo-3.api.key".
// Names containing path separators are rejected by every backend.
//
// # Multi-Backend Escrow
//
// MultiStore aggregates several backends:
//
//   - Put: writes to every backend, succeeds if at least one write succeeded
//   - Get: tries each backend until the secret is found
//   - Available: returns true if any backend is available
//
// # Shamir Escrow
//
// ShamirStore splits a secret into one share per backend so that any threshold of
// them restore it and fewer learn nothing. A digest inside the split payload
// detects stale or mismatched shares.
//
// # Sealing
//
// SealedStore wraps any backend and encrypts secrets with a passphrase first.
//
// # Usage Example
//
//	factory := storage.NewStoreFactory(logger)
//	escrow, err := factory.CreateMultiStore([]string{
//	    "file:///var/lib/ergo-escrow/",
//	    "vault://vault.example.com:8200/secret/ergo-devnet",
//	})
//	if err != nil {
//	    return err
//	}
//	err = escrow.Put(ctx, "ergo-1.api.key", []byte(secret))
package storage
