// Package main (cmd/ergokeys) implements the operator CLI for API keys of a local
// multi-node Ergo devnet.
//
// Every node N of the devnet owns two files under <workdir>/config:
//
//	ergo-N.conf      node configuration holding scorex.restApi.apiKeyHash
//	ergo-N.api.key   the plaintext secret clients send in the api_key header
//
// The tool keeps the two consistent: generate-key and rotate-key write a secret and
// its BLAKE2b-256 hash together, verify-key recomputes the hash from the key file and
// compares it with the configuration, and restore-key re-applies a secret escrowed
// in a file, S3 or Vault backend. generate-configs and generate-compose lay out a
// whole devnet and its docker-compose file.
//
// Exit codes: 0 on success, 1 on failure (including a missing node), 2 when
// verification finds a mismatched pair.
package main
