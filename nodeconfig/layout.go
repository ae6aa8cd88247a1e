package nodeconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
)

const (
	// DefaultPrefix is the file name prefix of every node file.
	DefaultPrefix = "ergo"

	// ConfigDirName is the directory, relative to the workspace root, holding node files.
	ConfigDirName = "config"
)

// Layout describes where the files of every node live. It is passed explicitly to
// every component; nothing depends on the process working directory.
type Layout struct {
	Root      string
	ConfigDir string
	Prefix    string
}

// NewLayout returns the layout rooted at root, with node files under root/config.
func NewLayout(root, prefix string) Layout {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Layout{
		Root:      root,
		ConfigDir: filepath.Join(root, ConfigDirName),
		Prefix:    prefix,
	}
}

// ConfigPath returns config/<prefix>-<id>.conf.
func (l Layout) ConfigPath(id interfaces.NodeID) string {
	return filepath.Join(l.ConfigDir, fmt.Sprintf("%s-%d.conf", l.Prefix, id))
}

// KeyPath returns config/<prefix>-<id>.api.key.
func (l Layout) KeyPath(id interfaces.NodeID) string {
	return filepath.Join(l.ConfigDir, l.KeyName(id))
}

// KeyName is the base name of the node's secret file, also used as escrow object name.
func (l Layout) KeyName(id interfaces.NodeID) string {
	return fmt.Sprintf("%s-%d.api.key", l.Prefix, id)
}

// LockPath returns the per-node lock file.
func (l Layout) LockPath(id interfaces.NodeID) string {
	return filepath.Join(l.ConfigDir, fmt.Sprintf(".%s-%d.lock", l.Prefix, id))
}

// DataDir returns the node's chain data directory, mounted into its container.
func (l Layout) DataDir(id interfaces.NodeID) string {
	return filepath.Join(l.Root, fmt.Sprintf(".%s-%d", l.Prefix, id))
}

// ServiceName is the compose service running the node.
func (l Layout) ServiceName(id interfaces.NodeID) string {
	return fmt.Sprintf("%s-node-%d", l.Prefix, id)
}

// NodeName is the p2p node name advertised by the node.
func (l Layout) NodeName(id interfaces.NodeID, network string) string {
	return fmt.Sprintf("%s-%s-node-%d", l.Prefix, network, id)
}

// Initialized returns ErrNotInitialized unless the config directory exists.
func (l Layout) Initialized() error {
	info, err := os.Stat(l.ConfigDir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist", interfaces.ErrNotInitialized, l.ConfigDir)
	}
	if err != nil {
		return fmt.Errorf("failed to stat config directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", interfaces.ErrNotInitialized, l.ConfigDir)
	}
	return nil
}

// NodeFilesExist reports whether both the secret file and the config file are present.
func (l Layout) NodeFilesExist(id interfaces.NodeID) (bool, error) {
	for _, path := range []string{l.KeyPath(id), l.ConfigPath(id)} {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return true, nil
}

// DiscoverNodes lists the nodes having a configuration file, in ascending order.
func (l Layout) DiscoverNodes() ([]interfaces.NodeID, error) {
	if err := l.Initialized(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(l.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(l.Prefix) + `-([0-9]+)\.conf$`)
	var nodes []interfaces.NodeID
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		id, err := interfaces.ParseNodeID(m[1])
		if err != nil {
			continue
		}
		nodes = append(nodes, id)
	}

	slices.Sort(nodes)
	return nodes, nil
}

// Ports allocates host ports per node.
type Ports struct {
	APIBase int
	P2PBase int
}

// DefaultPorts are the host port bases of the local devnet.
var DefaultPorts = Ports{APIBase: 9500, P2PBase: 9600}

const (
	// ContainerAPIPort is the REST API port inside every node container.
	ContainerAPIPort = 9053
	// ContainerP2PPort is the p2p port inside every node container.
	ContainerP2PPort = 9030
)

// APIPort is the host port forwarded to the node's REST API.
func (p Ports) APIPort(id interfaces.NodeID) int {
	return p.APIBase + int(id) - 1
}

// P2PPort is the host port forwarded to the node's p2p listener.
func (p Ports) P2PPort(id interfaces.NodeID) int {
	return p.P2PBase + int(id) - 1
}
