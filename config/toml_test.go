package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensureFiles(t *testing.T, rootDir string, files ...string) {
	for _, f := range files {
		p := rootify(f, rootDir)
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestEnsureRoot(t *testing.T) {
	tmpDir := t.TempDir()

	// create root dir
	require.NoError(t, EnsureRoot(tmpDir))

	// make sure config is set properly
	data, err := os.ReadFile(filepath.Join(tmpDir, defaultConfigFilePath))
	require.NoError(t, err)

	checkConfig(t, string(data))

	ensureFiles(t, tmpDir, "data", "config")
}

func TestEnsureRootKeepsExistingConfig(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := TestConfig()
	cfg.Light.KeyBlocks = 9
	require.NoError(t, EnsureRoot(tmpDir))
	require.NoError(t, WriteConfigFile(tmpDir, cfg))
	require.NoError(t, EnsureRoot(tmpDir))

	data, err := os.ReadFile(filepath.Join(tmpDir, defaultConfigFilePath))
	require.NoError(t, err)
	assert.Contains(t, string(data), "key_blocks = 9")
}

// The rendered template must be valid TOML and unmarshal back into an
// identical Config through viper.
func TestConfigTemplateRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	want := DefaultConfig()
	want.LogFormat = LogFormatJSON
	want.Light.SignatureSource = SignatureSourceToncenter
	want.Light.ToncenterAPIKey = "secret"
	want.Light.RequestTimeout = 3 * time.Second
	want.Light.Prefetch = false
	want.Instrumentation.Prometheus = true

	path := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, want.WriteToTemplate(path))

	var generic map[string]interface{}
	_, err := toml.DecodeFile(path, &generic)
	require.NoError(t, err)
	assert.Contains(t, generic, "light")
	assert.Contains(t, generic, "instrumentation")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	got := DefaultConfig()
	require.NoError(t, v.Unmarshal(got))
	assert.Equal(t, want, got)
	require.NoError(t, got.ValidateBasic())
}

func checkConfig(t *testing.T, configFile string) {
	t.Helper()
	// list of words we expect in the config
	var elems = []string{
		"db_backend",
		"db_dir",
		"log_level",
		"log_format",
		"key_blocks",
		"fixtures_dir",
		"signature_source",
		"toncenter_endpoint",
		"request_timeout",
		"cache_size",
		"prefetch",
		"global_config",
		"prometheus",
		"prometheus_listen_addr",
		"namespace",
	}
	for _, e := range elems {
		if !strings.Contains(configFile, e) {
			t.Errorf("config file was expected to contain %s but did not", e)
		}
	}

	var generic map[string]interface{}
	_, err := toml.Decode(configFile, &generic)
	require.NoError(t, err)
}
