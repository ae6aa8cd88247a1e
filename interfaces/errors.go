package interfaces

import "errors"

var (
	// ErrNotInitialized is returned when the expected configuration directory does not exist.
	ErrNotInitialized = errors.New("configuration directory not initialized")

	// ErrNodeNotFound is returned when an update was requested for a node whose
	// secret file or configuration file is missing.
	ErrNodeNotFound = errors.New("node not found")

	// ErrConfigMalformed is returned when a node configuration carries no apiKeyHash assignment.
	ErrConfigMalformed = errors.New("apiKeyHash assignment not found in configuration")

	// ErrInvalidSecret is returned for API secrets that are empty or not canonical.
	ErrInvalidSecret = errors.New("invalid API secret")

	// ErrInvalidNodeID is returned for node identities that are not positive integers.
	ErrInvalidNodeID = errors.New("invalid node id")

	// ErrReloadFailed is returned when the files were rewritten but the node could not be reloaded.
	ErrReloadFailed = errors.New("node reload failed")

	// ErrNodeLocked is returned when another operator currently holds the node's lock.
	ErrNodeLocked = errors.New("node is locked by another operation")

	// ErrContentNotFound is returned when requested content cannot be found in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)
