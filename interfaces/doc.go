// Package interfaces defines the core types and contracts shared by the devnet
// provisioning tools, separating the contracts from their implementations.
//
// # Node identity
//
// NodeID: positive integer naming one node of the local fleet. It determines the
// file pair a node owns in the configuration directory and its host port offsets.
//
// # Verification
//
// Verification: outcome of comparing the hash embedded in a node configuration with
// the hash recomputed from the node's API secret file (Match, Mismatch, NotFound).
//
// # Collaborators
//
// NodeReloader: capability used after a key rotation to restart or hot-reload the
// node process, implemented by the orchestrator package.
//
// SecretStore: optional escrow of provisioned API secrets across backend types
// (file, S3, Vault), implemented by the storage package.
package interfaces
