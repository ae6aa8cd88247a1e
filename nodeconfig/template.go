package nodeconfig

import (
	"bytes"
	"fmt"
	"text/template"
)

// NodeParams are the values substituted into a node configuration template.
type NodeParams struct {
	NodeName       string
	NetworkType    string
	APIKeyHash     string
	KnownPeers     []string
	MaxConnections int
}

// DefaultKnownPeers are the public mainnet peers used to bootstrap devnet nodes.
var DefaultKnownPeers = []string{
	"213.239.193.208:9030",
	"159.65.11.55:9030",
	"165.227.26.175:9030",
	"159.89.116.15:9030",
	"136.244.110.145:9030",
	"94.130.108.35:9030",
	"51.75.147.1:9020",
	"221.165.214.185:9030",
	"217.182.197.196:9030",
	"173.212.220.9:9030",
	"176.9.65.58:9130",
	"213.152.106.56:9030",
}

// DefaultNodeTemplate is the HOCON document every devnet node starts from.
const DefaultNodeTemplate = `ergo {
  networkType = "{{.NetworkType}}"
  directory = "/ergo/.ergo"
  node {
    mining = false
    rebroadcastCount = 10000
    offlineGeneration = false
    maxTransactionCost = 4900000
    utxo {
      utxoBootstrap = false
      storingUtxoSnapshots = 2
      p2pUtxoSnapshots = 2
    }
    wallet.secretStorage.secretDir = ${ergo.directory}"/wallet/keystore"
  }
}
scorex {
  network {
    bindAddress = "0.0.0.0:9030"
    nodeName = "{{.NodeName}}"
    knownPeers = [
{{- range $i, $peer := .KnownPeers}}{{if $i}},{{end}}
      "{{$peer}}"
{{- end}}
    ]
    maxConnections = {{.MaxConnections}}
  }
  restApi {
    apiKeyHash = "{{.APIKeyHash}}"
    bindAddress = "0.0.0.0:9053"
  }
}
`

// Template renders node configuration documents.
type Template struct {
	tmpl *template.Template
}

// NewTemplate parses a node configuration template. The rendered document must
// contain an apiKeyHash assignment.
func NewTemplate(text string) (*Template, error) {
	tmpl, err := template.New("node-config").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse node config template: %w", err)
	}
	return &Template{tmpl: tmpl}, nil
}

// MustDefaultTemplate returns the built-in template.
func MustDefaultTemplate() *Template {
	t, err := NewTemplate(DefaultNodeTemplate)
	if err != nil {
		panic(err)
	}
	return t
}

// Render produces the configuration document for one node.
func (t *Template) Render(params NodeParams) ([]byte, error) {
	if params.NetworkType == "" {
		params.NetworkType = "mainnet"
	}
	if params.KnownPeers == nil {
		params.KnownPeers = DefaultKnownPeers
	}
	if params.MaxConnections == 0 {
		params.MaxConnections = 500
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("failed to render node config: %w", err)
	}

	if _, err := ExtractAPIKeyHash(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("rendered node config: %w", err)
	}
	return buf.Bytes(), nil
}
