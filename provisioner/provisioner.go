package provisioner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/ruteri/ergo-devnet-provisioning/cryptoutils"
	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"github.com/ruteri/ergo-devnet-provisioning/nodeconfig"
)

const (
	keyFileMode    os.FileMode = 0o600
	configFileMode os.FileMode = 0o644
)

// Config wires a KeyProvisioner to its collaborators.
type Config struct {
	Layout nodeconfig.Layout

	// Template renders a configuration for nodes that do not have one yet.
	// Defaults to the built-in devnet template.
	Template    *nodeconfig.Template
	NetworkType string

	// Reloader is notified after a rotation. Nil disables reloads.
	Reloader interfaces.NodeReloader

	// Escrow receives a copy of every secret written. Nil disables escrow.
	Escrow interfaces.SecretStore

	Log *slog.Logger
}

// KeyResult is the secret/hash pair written for a node.
type KeyResult struct {
	Node   interfaces.NodeID
	Secret string
	Hash   string

	// ConfigCreated is set when the configuration was rendered from the template.
	ConfigCreated bool
	Escrowed      bool
	Reloaded      bool
}

// KeyProvisioner keeps every node's configuration hash equal to the hash of the
// node's secret file, across generation, rotation and verification.
type KeyProvisioner struct {
	layout      nodeconfig.Layout
	template    *nodeconfig.Template
	networkType string
	reloader    interfaces.NodeReloader
	escrow      interfaces.SecretStore
	log         *slog.Logger
}

// NewKeyProvisioner creates a provisioner for the given layout.
func NewKeyProvisioner(cfg Config) (*KeyProvisioner, error) {
	if cfg.Layout.ConfigDir == "" {
		return nil, errors.New("layout config directory is required")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	tmpl := cfg.Template
	if tmpl == nil {
		tmpl = nodeconfig.MustDefaultTemplate()
	}

	networkType := cfg.NetworkType
	if networkType == "" {
		networkType = "mainnet"
	}

	return &KeyProvisioner{
		layout:      cfg.Layout,
		template:    tmpl,
		networkType: networkType,
		reloader:    cfg.Reloader,
		escrow:      cfg.Escrow,
		log:         log,
	}, nil
}

// NewKeyPair returns secret and its hash. An empty secret is replaced by a fresh random one.
func NewKeyPair(secret string) (string, string, error) {
	if secret == "" {
		var err error
		secret, err = cryptoutils.GenerateAPISecret()
		if err != nil {
			return "", "", err
		}
	}
	if err := cryptoutils.CheckSecret(secret); err != nil {
		return "", "", err
	}
	return secret, cryptoutils.HashAPISecret([]byte(secret)), nil
}

// Generate writes a secret (random unless given) to the node's key file and its hash
// into the node's configuration. A missing configuration is rendered from the template;
// an existing one only has its apiKeyHash value replaced. Generate never reloads the node.
func (p *KeyProvisioner) Generate(ctx context.Context, node interfaces.NodeID, secret string) (*KeyResult, error) {
	return p.apply(ctx, node, secret, applyOpts{escrow: true})
}

// Rotate replaces the secret of an existing node, rewrites both files and then asks
// the reloader to restart the node. Both files must exist beforehand.
//
// When the reload fails the files are already consistent; the result is returned
// together with an error wrapping ErrReloadFailed.
func (p *KeyProvisioner) Rotate(ctx context.Context, node interfaces.NodeID, secret string) (*KeyResult, error) {
	return p.apply(ctx, node, secret, applyOpts{requireExisting: true, escrow: true, reload: true})
}

// Restore re-applies the escrowed secret of a node and reloads it. It repairs a
// mismatched pair as well as a lost key file.
func (p *KeyProvisioner) Restore(ctx context.Context, node interfaces.NodeID) (*KeyResult, error) {
	if p.escrow == nil {
		return nil, errors.New("no escrow store configured")
	}
	if err := node.Validate(); err != nil {
		return nil, err
	}

	secret, err := p.escrow.Get(ctx, p.layout.KeyName(node))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch escrowed secret from %s: %w", p.escrow.Name(), err)
	}

	p.log.Info("Restoring API key from escrow",
		slog.String("node", node.String()),
		slog.String("backend", p.escrow.Name()))

	return p.apply(ctx, node, string(secret), applyOpts{reload: true})
}

type applyOpts struct {
	requireExisting bool
	escrow          bool
	reload          bool
}

func (p *KeyProvisioner) apply(ctx context.Context, node interfaces.NodeID, secret string, opts applyOpts) (*KeyResult, error) {
	start := time.Now()
	if err := node.Validate(); err != nil {
		return nil, err
	}
	if err := p.layout.Initialized(); err != nil {
		return nil, err
	}

	if opts.requireExisting {
		exists, err := p.layout.NodeFilesExist(node)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: configuration files for node %d not found", interfaces.ErrNodeNotFound, node)
		}
	}

	secret, hash, err := NewKeyPair(secret)
	if err != nil {
		return nil, err
	}

	lock, err := lockNode(p.layout.LockPath(node))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.log.Warn("Failed to release node lock", slog.String("node", node.String()), "err", err)
		}
	}()

	// The new config is computed before anything is written so a malformed
	// document leaves both files untouched.
	conf, created, err := p.nextConfig(node, hash)
	if err != nil {
		return nil, err
	}

	if err := nodeconfig.WriteFileAtomic(p.layout.KeyPath(node), []byte(secret), keyFileMode); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	if err := nodeconfig.WriteFileAtomic(p.layout.ConfigPath(node), conf, configFileMode); err != nil {
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}

	result := &KeyResult{
		Node:          node,
		Secret:        secret,
		Hash:          hash,
		ConfigCreated: created,
	}

	p.log.Info("Wrote API key",
		slog.String("node", node.String()),
		slog.Bool("config_created", created),
		slog.Duration("duration", time.Since(start)))
	p.log.Debug("API key hash", slog.String("node", node.String()), slog.String("hash", hash))

	if opts.escrow && p.escrow != nil {
		result.Escrowed = p.escrowSecret(ctx, node, secret)
	}

	if opts.reload && p.reloader != nil {
		if err := p.reloader.Reload(ctx, node); err != nil {
			p.log.Error("Failed to reload node", slog.String("node", node.String()), "err", err)
			return result, fmt.Errorf("%w: node %d: %v", interfaces.ErrReloadFailed, node, err)
		}
		result.Reloaded = true
		p.log.Info("Reloaded node", slog.String("node", node.String()))
	}

	return result, nil
}

// nextConfig returns the node configuration carrying hash.
func (p *KeyProvisioner) nextConfig(node interfaces.NodeID, hash string) ([]byte, bool, error) {
	path := p.layout.ConfigPath(node)
	current, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		conf, err := p.template.Render(nodeconfig.NodeParams{
			NodeName:    p.layout.NodeName(node, p.networkType),
			NetworkType: p.networkType,
			APIKeyHash:  hash,
		})
		if err != nil {
			return nil, false, err
		}
		return conf, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read config file: %w", err)
	}

	conf, err := nodeconfig.ReplaceAPIKeyHash(current, hash)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	return conf, false, nil
}

// escrowSecret stores a copy of the secret. Failures are logged only: the node
// files are already consistent and the key file remains the source of truth.
func (p *KeyProvisioner) escrowSecret(ctx context.Context, node interfaces.NodeID, secret string) bool {
	if !p.escrow.Available(ctx) {
		p.log.Warn("Escrow backend unavailable, secret not escrowed",
			slog.String("node", node.String()),
			slog.String("backend", p.escrow.Name()))
		return false
	}
	if err := p.escrow.Put(ctx, p.layout.KeyName(node), []byte(secret)); err != nil {
		p.log.Warn("Failed to escrow secret",
			slog.String("node", node.String()),
			slog.String("backend", p.escrow.Name()),
			"err", err)
		return false
	}
	return true
}
