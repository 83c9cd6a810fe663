package config

import (
	"bytes"
	"path/filepath"
	"text/template"

	tlos "github.com/tonlight/tonlight/libs/os"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate")
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't
// exist, and writes the default config file when none is present.
func EnsureRoot(rootDir string) error {
	if err := tlos.EnsureDir(rootDir, defaultDirPerm); err != nil {
		return err
	}
	if err := tlos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return err
	}
	if err := tlos.EnsureDir(filepath.Join(rootDir, defaultDataDir), defaultDirPerm); err != nil {
		return err
	}
	return writeDefaultConfigFileIfNone(rootDir)
}

// WriteConfigFile renders config using the template and writes it to configFilePath.
// This function is called by cmd/tonlight/commands/init.go
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(filepath.Join(rootDir, defaultConfigFilePath))
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}

	return tlos.WriteFileAtomic(path, buffer.Bytes(), 0644)
}

func writeDefaultConfigFileIfNone(rootDir string) error {
	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)
	if !tlos.FileExists(configFilePath) {
		return WriteConfigFile(rootDir, DefaultConfig())
	}
	return nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: Any path below can be absolute (e.g. "/var/tonlight/data") or
# relative to the home directory (e.g. "data"). The home directory is
# "$HOME/.tonlight" by default, but could be changed via $TONLIGHT_HOME env
# variable or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# Database backend: goleveldb | memdb
# * goleveldb (github.com/syndtr/goleveldb - most popular implementation)
#   - pure go
#   - stable
# * memdb
#   - nothing survives a restart
db_backend = "{{ .BaseConfig.DBBackend }}"

# Database directory
db_dir = "{{ .BaseConfig.DBPath }}"

# Output level for logging: debug | info | error
log_level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log_format = "{{ .BaseConfig.LogFormat }}"

#######################################################################
###                  Light Client Configuration                     ###
#######################################################################
[light]

# Number of consecutive key blocks to verify, including the trusted one
key_blocks = {{ .Light.KeyBlocks }}

# Directory holding blocks.json, signatures.json, headerHashes.json and
# validatorSets.json
fixtures_dir = "{{ .Light.FixturesDir }}"

# Where signatures come from: fixtures | toncenter
signature_source = "{{ .Light.SignatureSource }}"

# toncenter JSON-RPC endpoint
toncenter_endpoint = "{{ .Light.ToncenterEndpoint }}"

# toncenter API key (optional)
toncenter_api_key = "{{ .Light.ToncenterAPIKey }}"

# Timeout of a single request to a remote source
request_timeout = "{{ .Light.RequestTimeout }}"

# Number of decoded blocks and seqno lookups kept in memory
cache_size = {{ .Light.CacheSize }}

# Fetch the next link while the current one is being verified
prefetch = {{ .Light.Prefetch }}

# Path to the TON global config listing liteservers
global_config = "{{ .Light.GlobalConfig }}"

#######################################################
###       Instrumentation Configuration Options     ###
#######################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus_listen_addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`
