package common

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{JSON: true, Service: "ergokeys", Version: "v1.2.3", Output: &buf})

	log.Debug("hidden")
	require.Zero(t, buf.Len())

	log.Info("shown")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "shown", entry["msg"])
	require.Equal(t, "ergokeys", entry["service"])
	require.Equal(t, "v1.2.3", entry["version"])

	buf.Reset()
	SetupLogger(&LoggingOpts{Debug: true, Output: &buf}).Debug("visible")
	require.Contains(t, buf.String(), "msg=visible")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	require.NoError(t, LoadDotEnv(path, false))
	require.Error(t, LoadDotEnv(path, true))

	require.NoError(t, os.WriteFile(path, []byte("ERGO_TEST_DOTENV=from-file\nERGO_TEST_DOTENV_SET=from-file\n"), 0o600))
	t.Setenv("ERGO_TEST_DOTENV_SET", "from-env")
	t.Setenv("ERGO_TEST_DOTENV", "")
	os.Unsetenv("ERGO_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path, true))
	require.Equal(t, "from-file", os.Getenv("ERGO_TEST_DOTENV"))
	require.Equal(t, "from-env", os.Getenv("ERGO_TEST_DOTENV_SET"))
	os.Unsetenv("ERGO_TEST_DOTENV")
}
