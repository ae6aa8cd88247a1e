//go:build unix

package provisioner

import (
	"context"
	"testing"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"github.com/stretchr/testify/require"
)

func TestConcurrentWriterIsRejected(t *testing.T) {
	p, layout := newTestProvisioner(t, Config{})
	ctx := context.Background()

	_, err := p.Generate(ctx, 1, "hello")
	require.NoError(t, err)

	held, err := lockNode(layout.LockPath(1))
	require.NoError(t, err)

	_, err = p.Rotate(ctx, 1, "other")
	require.ErrorIs(t, err, interfaces.ErrNodeLocked)
	require.Equal(t, "hello", readFile(t, layout.KeyPath(1)))

	// Other nodes are not affected.
	_, err = p.Generate(ctx, 2, "")
	require.NoError(t, err)

	require.NoError(t, held.Unlock())
	_, err = p.Rotate(ctx, 1, "other")
	require.NoError(t, err)
}
