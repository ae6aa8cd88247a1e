package nodeconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConf = `# devnet node
scorex {
  restApi {
    # apiKeyHash = "commented-out"
    apiKeyHash = "APIHASH"
    bindAddress = "0.0.0.0:9053"
  }
}
`

func TestExtractAPIKeyHash(t *testing.T) {
	testCases := []struct {
		name    string
		conf    string
		want    string
		wantErr bool
	}{
		{name: "nested block", conf: sampleConf, want: "APIHASH"},
		{name: "dotted path", conf: `scorex.restApi.apiKeyHash = "abc"`, want: "abc"},
		{name: "colon separator", conf: `apiKeyHash: "abc"`, want: "abc"},
		{name: "last assignment wins", conf: "apiKeyHash = \"a\"\napiKeyHash = \"b\"\n", want: "b"},
		{name: "empty value", conf: `apiKeyHash = ""`, want: ""},
		{name: "inline object", conf: `restApi { apiKeyHash = "abc" }`, want: "abc"},
		{name: "after comma", conf: `restApi { bindAddress = "0.0.0.0:9052", apiKeyHash = "abc" }`, want: "abc"},
		{name: "only a comment", conf: `# apiKeyHash = "x"`, wantErr: true},
		{name: "commented inline object", conf: `# restApi { apiKeyHash = "x" }`, wantErr: true},
		{name: "slash comment", conf: `// restApi { bindAddress = "a", apiKeyHash = "x" }`, wantErr: true},
		{name: "other key suffix", conf: `oldApiKeyHash = "x"`, wantErr: true},
		{name: "missing", conf: "scorex {}\n", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractAPIKeyHash([]byte(tc.conf))
			if tc.wantErr {
				require.ErrorIs(t, err, interfaces.ErrConfigMalformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReplaceAPIKeyHashPreservesDocument(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	out, err := ReplaceAPIKeyHash([]byte(sampleConf), hash)
	require.NoError(t, err)

	got, err := ExtractAPIKeyHash(out)
	require.NoError(t, err)
	require.Equal(t, hash, got)

	before := strings.Split(sampleConf, "\n")
	after := strings.Split(string(out), "\n")
	require.Len(t, after, len(before))
	for i := range before {
		if strings.Contains(before[i], `apiKeyHash = "APIHASH"`) {
			require.Equal(t, `    apiKeyHash = "`+hash+`"`, after[i])
			continue
		}
		require.Equal(t, before[i], after[i], "line %d changed", i)
	}
}

func TestReplaceAPIKeyHashInline(t *testing.T) {
	conf := "scorex {\n  restApi { bindAddress = \"0.0.0.0:9052\", apiKeyHash = \"abc\" }\n}\n"
	out, err := ReplaceAPIKeyHash([]byte(conf), "def")
	require.NoError(t, err)
	require.Equal(t, strings.Replace(conf, `"abc"`, `"def"`, 1), string(out))

	out, err = ReplaceAPIKeyHash([]byte(`restApi { apiKeyHash = "abc" }`), "def")
	require.NoError(t, err)
	require.Equal(t, `restApi { apiKeyHash = "def" }`, string(out))
}

func TestReplaceAPIKeyHashErrors(t *testing.T) {
	_, err := ReplaceAPIKeyHash([]byte("scorex {}\n"), "abc")
	require.ErrorIs(t, err, interfaces.ErrConfigMalformed)

	_, err = ReplaceAPIKeyHash([]byte(sampleConf), `bad"value`)
	require.Error(t, err)
}

func TestRenderNodeConfig(t *testing.T) {
	tmpl := MustDefaultTemplate()
	out, err := tmpl.Render(NodeParams{NodeName: "ergo-mainnet-node-3", APIKeyHash: "deadbeef"})
	require.NoError(t, err)

	conf := string(out)
	require.Contains(t, conf, `nodeName = "ergo-mainnet-node-3"`)
	require.Contains(t, conf, `networkType = "mainnet"`)
	require.Contains(t, conf, `wallet.secretStorage.secretDir = ${ergo.directory}"/wallet/keystore"`)
	require.Contains(t, conf, "      \"213.239.193.208:9030\",\n      \"159.65.11.55:9030\",")
	require.Contains(t, conf, "      \"213.152.106.56:9030\"\n    ]")
	require.Contains(t, conf, "maxConnections = 500")

	hash, err := ExtractAPIKeyHash(out)
	require.NoError(t, err)
	require.Equal(t, "deadbeef", hash)
}

func TestTemplateWithoutAssignment(t *testing.T) {
	tmpl, err := NewTemplate(`ergo { nodeName = "{{.NodeName}}" }`)
	require.NoError(t, err)

	_, err = tmpl.Render(NodeParams{NodeName: "n"})
	require.ErrorIs(t, err, interfaces.ErrConfigMalformed)
}

func TestLayout(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root, "")

	assert.Equal(t, filepath.Join(root, "config", "ergo-2.conf"), layout.ConfigPath(2))
	assert.Equal(t, filepath.Join(root, "config", "ergo-2.api.key"), layout.KeyPath(2))
	assert.Equal(t, filepath.Join(root, ".ergo-2"), layout.DataDir(2))
	assert.Equal(t, "ergo-node-2", layout.ServiceName(2))
	assert.Equal(t, "ergo-mainnet-node-2", layout.NodeName(2, "mainnet"))

	require.ErrorIs(t, layout.Initialized(), interfaces.ErrNotInitialized)
	_, err := layout.DiscoverNodes()
	require.ErrorIs(t, err, interfaces.ErrNotInitialized)

	require.NoError(t, os.MkdirAll(layout.ConfigDir, 0o755))
	require.NoError(t, layout.Initialized())

	for _, name := range []string{"ergo-10.conf", "ergo-2.conf", "ergo-2.api.key", "ergo-x.conf", "other-1.conf", "ergo-0.conf"} {
		require.NoError(t, os.WriteFile(filepath.Join(layout.ConfigDir, name), nil, 0o600))
	}

	nodes, err := layout.DiscoverNodes()
	require.NoError(t, err)
	require.Equal(t, []interfaces.NodeID{2, 10}, nodes)

	exists, err := layout.NodeFilesExist(2)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = layout.NodeFilesExist(10)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestPorts(t *testing.T) {
	assert.Equal(t, 9500, DefaultPorts.APIPort(1))
	assert.Equal(t, 9600, DefaultPorts.P2PPort(1))
	assert.Equal(t, 9504, DefaultPorts.APIPort(5))
	assert.Equal(t, 9604, DefaultPorts.P2PPort(5))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ergo-1.api.key")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.Equal([]byte("second"), data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")

	require.Error(t, WriteFileAtomic(filepath.Join(dir, "missing", "f"), []byte("x"), 0o600))
}
