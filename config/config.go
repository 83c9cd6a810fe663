package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	// SignatureSourceFixtures reads signatures from the fixture directory.
	SignatureSourceFixtures = "fixtures"
	// SignatureSourceToncenter fetches signatures over the toncenter API.
	SignatureSourceToncenter = "toncenter"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
// NOTE: libs/cli must know to look in the config dir!
var (
	DefaultTonlightDir = ".tonlight"
	defaultConfigDir   = "config"
	defaultDataDir     = "data"

	defaultConfigFileName = "config.toml"
	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
)

// Config defines the top level configuration for a tonlight verifier
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	Light           *LightConfig           `mapstructure:"light"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		Light:           DefaultLightConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		Light:           TestLightConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	cfg.Light.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Light.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [light] section: %w", err)
	}
	if err := cfg.Instrumentation.ValidateBasic(); err != nil {
		return fmt.Errorf("error in [instrumentation] section: %w", err)
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// Database backend: goleveldb | memdb
	// * goleveldb (github.com/syndtr/goleveldb - most popular implementation)
	//   - pure go
	//   - stable
	// * memdb
	//   - nothing survives a restart
	DBBackend string `mapstructure:"db_backend"`

	// Database directory
	DBPath string `mapstructure:"db_dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log_level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log_format"`
}

// DefaultBaseConfig returns a default base configuration
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		DBBackend: "goleveldb",
		DBPath:    defaultDataDir,
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
	}
}

// TestBaseConfig returns a base configuration for testing
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.DBBackend = "memdb"
	cfg.LogLevel = "debug"
	return cfg
}

// DBDir returns the full path to the database directory
func (cfg BaseConfig) DBDir() string {
	return rootify(cfg.DBPath, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log_format (must be 'plain' or 'json')")
	}
	switch cfg.LogLevel {
	case "debug", "info", "error":
	default:
		return fmt.Errorf("unknown log_level %q (must be 'debug', 'info' or 'error')", cfg.LogLevel)
	}
	switch cfg.DBBackend {
	case "goleveldb", "memdb":
	default:
		return fmt.Errorf("unsupported db_backend %q", cfg.DBBackend)
	}
	return nil
}

// DefaultLogLevel is the log level used unless overridden.
const DefaultLogLevel = "info"

//-----------------------------------------------------------------------------
// LightConfig

// LightConfig defines the configuration of the key block verifier.
type LightConfig struct {
	RootDir string `mapstructure:"home"`

	// Number of consecutive key blocks to verify, including the trusted one.
	KeyBlocks int `mapstructure:"key_blocks"`

	// Directory holding blocks.json, signatures.json, headerHashes.json
	// and validatorSets.json.
	FixturesDir string `mapstructure:"fixtures_dir"`

	// Where signatures come from: fixtures | toncenter
	SignatureSource string `mapstructure:"signature_source"`

	// toncenter JSON-RPC endpoint and optional API key.
	ToncenterEndpoint string `mapstructure:"toncenter_endpoint"`
	ToncenterAPIKey   string `mapstructure:"toncenter_api_key"`

	// Timeout of a single request to a remote source.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Number of decoded blocks and seqno lookups kept in memory.
	CacheSize int `mapstructure:"cache_size"`

	// Fetch the next link while the current one is being verified.
	Prefetch bool `mapstructure:"prefetch"`

	// Path to the TON global config listing liteservers.
	GlobalConfig string `mapstructure:"global_config"`
}

// DefaultLightConfig returns a default configuration for the verifier.
func DefaultLightConfig() *LightConfig {
	return &LightConfig{
		KeyBlocks:         4,
		FixturesDir:       "fixtures",
		SignatureSource:   SignatureSourceFixtures,
		ToncenterEndpoint: "https://toncenter.com/api/v2/jsonRPC",
		RequestTimeout:    10 * time.Second,
		CacheSize:         256,
		Prefetch:          true,
		GlobalConfig:      filepath.Join(defaultConfigDir, "global.config.json"),
	}
}

// TestLightConfig returns a verifier configuration for testing.
func TestLightConfig() *LightConfig {
	cfg := DefaultLightConfig()
	cfg.RequestTimeout = time.Second
	cfg.CacheSize = 16
	return cfg
}

// FixturesPath returns the full path to the fixtures directory.
func (cfg *LightConfig) FixturesPath() string {
	return rootify(cfg.FixturesDir, cfg.RootDir)
}

// GlobalConfigFile returns the full path to the TON global config.
func (cfg *LightConfig) GlobalConfigFile() string {
	return rootify(cfg.GlobalConfig, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *LightConfig) ValidateBasic() error {
	if cfg.KeyBlocks < 2 {
		return errors.New("key_blocks must be at least 2")
	}
	switch cfg.SignatureSource {
	case SignatureSourceFixtures:
	case SignatureSourceToncenter:
		u, err := url.Parse(cfg.ToncenterEndpoint)
		if err != nil {
			return fmt.Errorf("invalid toncenter_endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("toncenter_endpoint must be an http(s) url, got %q", cfg.ToncenterEndpoint)
		}
	default:
		return fmt.Errorf("unknown signature_source %q (must be 'fixtures' or 'toncenter')", cfg.SignatureSource)
	}
	if cfg.RequestTimeout < 0 {
		return errors.New("request_timeout can't be negative")
	}
	if cfg.CacheSize < 0 {
		return errors.New("cache_size can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus_listen_addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		Namespace:            "tonlight",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.Prometheus && cfg.PrometheusListenAddr == "" {
		return errors.New("prometheus_listen_addr is required when prometheus is enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// DefaultHome returns $HOME/.tonlight.
func DefaultHome() string {
	return os.ExpandEnv(filepath.Join("$HOME", DefaultTonlightDir))
}
