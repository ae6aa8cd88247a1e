package provisioner

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
)

// ProvisionFleet initializes the layout for nodes 1..n: it creates the configuration
// directory and every node's data directory, then generates a fresh key pair per node.
// Existing configurations keep everything but their apiKeyHash.
func (p *KeyProvisioner) ProvisionFleet(ctx context.Context, n int) ([]*KeyResult, error) {
	if n < 1 {
		return nil, fmt.Errorf("number of nodes must be positive, got %d", n)
	}

	if err := os.MkdirAll(p.layout.ConfigDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	results := make([]*KeyResult, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		node := interfaces.NodeID(i)
		if err := os.MkdirAll(p.layout.DataDir(node), 0o755); err != nil {
			return results, fmt.Errorf("failed to create data directory for node %d: %w", node, err)
		}

		result, err := p.Generate(ctx, node, "")
		if err != nil {
			return results, fmt.Errorf("node %d: %w", node, err)
		}
		results = append(results, result)
	}

	p.log.Info("Provisioned fleet", slog.Int("nodes", n), slog.String("config_dir", p.layout.ConfigDir))
	return results, nil
}
