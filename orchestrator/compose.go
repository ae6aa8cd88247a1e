package orchestrator

import (
	"fmt"
	"path/filepath"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"github.com/ruteri/ergo-devnet-provisioning/nodeconfig"
	"gopkg.in/yaml.v3"
)

// DefaultComposeFileName is the compose document the devnet scripts operate on.
const DefaultComposeFileName = "docker-compose-multi.yml"

// ComposeOptions parameterize the generated compose document.
type ComposeOptions struct {
	Nodes    int
	Image    string
	NodeJar  string
	HeapSize string
	Network  string
	Ports    nodeconfig.Ports
}

// DefaultComposeOptions describe the stock single-host devnet.
func DefaultComposeOptions(nodes int) ComposeOptions {
	return ComposeOptions{
		Nodes:    nodes,
		Image:    "bellsoft/liberica-openjdk-alpine",
		NodeJar:  "ergo-5.0.14.jar",
		HeapSize: "2G",
		Network:  "mainnet",
		Ports:    nodeconfig.DefaultPorts,
	}
}

// ComposeFile is the subset of the Compose file format the devnet uses.
type ComposeFile struct {
	Version  string                     `yaml:"version,omitempty"`
	Services map[string]*ComposeService `yaml:"services"`
}

// ComposeService runs one node.
type ComposeService struct {
	Image      string   `yaml:"image"`
	Restart    string   `yaml:"restart,omitempty"`
	Volumes    []string `yaml:"volumes,omitempty"`
	Ports      []string `yaml:"ports,omitempty"`
	WorkingDir string   `yaml:"working_dir,omitempty"`
	Command    string   `yaml:"command,omitempty"`
}

// BuildCompose returns a compose document with one service per node. Paths are
// relative to the layout root, where the compose file is written.
func BuildCompose(layout nodeconfig.Layout, opts ComposeOptions) (*ComposeFile, error) {
	if opts.Nodes < 1 {
		return nil, fmt.Errorf("number of nodes must be positive, got %d", opts.Nodes)
	}
	if opts.Image == "" || opts.NodeJar == "" {
		return nil, fmt.Errorf("image and node jar are required")
	}

	configRel, err := filepath.Rel(layout.Root, layout.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("config directory outside of workspace root: %w", err)
	}

	command := fmt.Sprintf("java -jar -Xmx%s ergo.jar --%s -c ergo.conf", opts.HeapSize, opts.Network)

	compose := &ComposeFile{
		Version:  "3",
		Services: make(map[string]*ComposeService, opts.Nodes),
	}
	for i := 1; i <= opts.Nodes; i++ {
		node := interfaces.NodeID(i)
		compose.Services[layout.ServiceName(node)] = &ComposeService{
			Image:   opts.Image,
			Restart: "unless-stopped",
			Volumes: []string{
				fmt.Sprintf("./%s:/ergo/.ergo", filepath.Base(layout.DataDir(node))),
				fmt.Sprintf("./%s:/app/ergo.conf", filepath.ToSlash(filepath.Join(configRel, filepath.Base(layout.ConfigPath(node))))),
				fmt.Sprintf("./%s:/app/ergo.jar", opts.NodeJar),
			},
			Ports: []string{
				fmt.Sprintf("%d:%d", opts.Ports.APIPort(node), nodeconfig.ContainerAPIPort),
				fmt.Sprintf("%d:%d", opts.Ports.P2PPort(node), nodeconfig.ContainerP2PPort),
			},
			WorkingDir: "/app",
			Command:    command,
		}
	}
	return compose, nil
}

// Marshal renders the compose document as YAML.
func (c *ComposeFile) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compose file: %w", err)
	}
	return out, nil
}

// WriteCompose builds the compose document and writes it to path.
func WriteCompose(path string, layout nodeconfig.Layout, opts ComposeOptions) (*ComposeFile, error) {
	compose, err := BuildCompose(layout, opts)
	if err != nil {
		return nil, err
	}

	out, err := compose.Marshal()
	if err != nil {
		return nil, err
	}

	if err := nodeconfig.WriteFileAtomic(path, out, 0o644); err != nil {
		return nil, err
	}
	return compose, nil
}
