package provisioner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/ruteri/ergo-devnet-provisioning/cryptoutils"
	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"github.com/ruteri/ergo-devnet-provisioning/nodeconfig"
)

// Verify recomputes the hash of the node's key file, exactly as stored on disk, and
// compares it with the apiKeyHash in the node's configuration. It never writes.
//
// A missing file yields VerifyNotFound with a nil error; a configuration without an
// apiKeyHash assignment yields an error wrapping ErrConfigMalformed.
func (p *KeyProvisioner) Verify(ctx context.Context, node interfaces.NodeID) (*interfaces.Verification, error) {
	if err := node.Validate(); err != nil {
		return nil, err
	}

	v := &interfaces.Verification{Node: node, Result: interfaces.VerifyNotFound}

	secret, err := os.ReadFile(p.layout.KeyPath(node))
	if errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	conf, err := os.ReadFile(p.layout.ConfigPath(node))
	if errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	stored, err := nodeconfig.ExtractAPIKeyHash(conf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.layout.ConfigPath(node), err)
	}

	v.StoredHash = stored
	v.KeyLength = len(secret)
	v.ComputedHash = cryptoutils.HashAPISecret(secret)
	if v.StoredHash == v.ComputedHash {
		v.Result = interfaces.VerifyMatch
	} else {
		v.Result = interfaces.VerifyMismatch
		p.log.Warn("API key hash mismatch",
			slog.String("node", node.String()),
			slog.String("stored", v.StoredHash),
			slog.String("computed", v.ComputedHash),
			slog.Int("secret_len", len(secret)))
	}

	return v, nil
}

// VerifyAll verifies every node that has a configuration file, in ascending order.
// Malformed configurations are reported as mismatches so one broken node does not
// hide the state of the others.
func (p *KeyProvisioner) VerifyAll(ctx context.Context) ([]*interfaces.Verification, error) {
	nodes, err := p.layout.DiscoverNodes()
	if err != nil {
		return nil, err
	}

	results := make([]*interfaces.Verification, 0, len(nodes))
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		v, err := p.Verify(ctx, node)
		if errors.Is(err, interfaces.ErrConfigMalformed) {
			p.log.Warn("Malformed node configuration", slog.String("node", node.String()), "err", err)
			v = &interfaces.Verification{Node: node, Result: interfaces.VerifyMismatch}
		} else if err != nil {
			return results, err
		}
		results = append(results, v)
	}
	return results, nil
}
