package interfaces

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// NodeID identifies one node instance in the local fleet.
type NodeID uint

// ParseNodeID parses a decimal, strictly positive node identity.
func ParseNodeID(s string) (NodeID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNodeID, s)
	}
	id := NodeID(n)
	if err := id.Validate(); err != nil {
		return 0, err
	}
	return id, nil
}

// Validate rejects the zero identity.
func (id NodeID) Validate() error {
	if id == 0 {
		return fmt.Errorf("%w: node ids start at 1", ErrInvalidNodeID)
	}
	return nil
}

// String returns the decimal representation used in file and service names.
func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// VerifyResult is the outcome of a verification.
type VerifyResult int

const (
	// VerifyMatch means the stored hash equals the hash of the stored secret.
	VerifyMatch VerifyResult = iota
	// VerifyMismatch means the stored pair is inconsistent.
	VerifyMismatch
	// VerifyNotFound means the secret file or the configuration file is absent.
	VerifyNotFound
)

// String returns the result name.
func (r VerifyResult) String() string {
	switch r {
	case VerifyMatch:
		return "match"
	case VerifyMismatch:
		return "mismatch"
	case VerifyNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Verification describes a single node check.
type Verification struct {
	Node         NodeID
	Result       VerifyResult
	StoredHash   string
	ComputedHash string
	// KeyLength is the byte length of the key file that was hashed.
	KeyLength int
}

// OK reports whether the node is consistent.
func (v *Verification) OK() bool {
	return v.Result == VerifyMatch
}

// NodeReloader restarts or hot-reloads a node process so it rereads its configuration.
type NodeReloader interface {
	Reload(ctx context.Context, node NodeID) error
}
