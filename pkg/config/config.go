/*
Package config manages the TOML config for typeahead.

Values missing from the file keep their defaults. A file that fails to
decode as a whole is parsed again section by section, so one bad key does
not discard the rest.
*/
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/codec"
	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
)

// AppName names the per-user config directory.
const AppName = "typeahead"

// MaxK bounds query.max_k so result ranks fit in 16 bits.
const MaxK = math.MaxUint16

// Config holds the entire config structure
type Config struct {
	Index  IndexConfig  `toml:"index"`
	Query  QueryConfig  `toml:"query"`
	Server ServerConfig `toml:"server"`
	CLI    CliConfig    `toml:"cli"`
}

// IndexConfig selects the collection and how its forward index is encoded.
type IndexConfig struct {
	Basename    string `toml:"basename"`
	SortedCodec string `toml:"sorted_codec"`
	Pointers    string `toml:"pointers"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	DefaultK  int    `toml:"default_k"`
	MaxK      int    `toml:"max_k"`
	Mode      string `toml:"mode"`
	Separator string `toml:"separator"`
	Workers   int    `toml:"workers"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	RateLimit   float64 `toml:"rate_limit"`
	Burst       int     `toml:"burst"`
	MetricsAddr string  `toml:"metrics_addr"`
	MaxQueryLen int     `toml:"max_query_len"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int  `toml:"default_limit"`
	ShowIDs      bool `toml:"show_ids"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Basename:    "data/collection.txt",
			SortedCodec: codec.KindEliasFano.String(),
			Pointers:    codec.KindEliasFano.String(),
		},
		Query: QueryConfig{
			DefaultK:  10,
			MaxK:      100,
			Mode:      suggest.Conjunctive.String(),
			Separator: " ",
			Workers:   4,
		},
		Server: ServerConfig{
			RateLimit:   1000,
			Burst:       100,
			MetricsAddr: "",
			MaxQueryLen: 256,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
			ShowIDs:      false,
		},
	}
}

// Validate checks values that cannot be clamped silently.
func (c *Config) Validate() error {
	if _, err := codec.ParseKind(c.Index.SortedCodec); err != nil {
		return fmt.Errorf("index.sorted_codec: %w", err)
	}
	if _, err := codec.ParseKind(c.Index.Pointers); err != nil {
		return fmt.Errorf("index.pointers: %w", err)
	}
	if _, err := suggest.ParseMode(c.Query.Mode); err != nil {
		return fmt.Errorf("query.mode: %w", err)
	}
	if c.Query.MaxK < 1 || c.Query.MaxK > MaxK {
		return fmt.Errorf("query.max_k must be in [1, %d], got %d", MaxK, c.Query.MaxK)
	}
	if c.Query.DefaultK < 1 || c.Query.DefaultK > c.Query.MaxK {
		return fmt.Errorf("query.default_k must be in [1, %d], got %d", c.Query.MaxK, c.Query.DefaultK)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %g", c.Server.RateLimit)
	}
	return nil
}

// SortedKind returns the parsed index.sorted_codec, falling back to Elias-Fano.
func (c *Config) SortedKind() codec.Kind {
	k, err := codec.ParseKind(c.Index.SortedCodec)
	if err != nil {
		return codec.KindEliasFano
	}
	return k
}

// PointersKind returns the parsed index.pointers, falling back to Elias-Fano.
func (c *Config) PointersKind() codec.Kind {
	k, err := codec.ParseKind(c.Index.Pointers)
	if err != nil {
		return codec.KindEliasFano
	}
	return k
}

// Mode returns the parsed query.mode, falling back to conjunctive.
func (c *Config) Mode() suggest.Mode {
	m, err := suggest.ParseMode(c.Query.Mode)
	if err != nil {
		return suggest.Conjunctive
	}
	return m
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/typeahead (or $XDG_CONFIG_HOME/typeahead)
// 2. ~/Library/Application Support/typeahead (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	primaryPath := utils.NewPathResolver(AppName).ConfigDir()
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		macOSPath := filepath.Join(homeDir, "Library", "Application Support", AppName)
		if result := utils.CheckDirStatus(macOSPath); result.Writable {
			return macOSPath, nil
		}
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/typeahead/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file. Invalid values are reported as errors;
// undecodable files fall back to a partial parse.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		log.Warnf("Config %s did not decode cleanly: %v. Recovering valid sections...", configPath, err)
		config = tryPartialParse(configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	return config, nil
}

// tryPartialParse keeps every section value that has the right type.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if section, ok := utils.ExtractSection(tempConfig, "index"); ok {
		extractIndexConfig(section, &config.Index)
	}
	if section, ok := utils.ExtractSection(tempConfig, "query"); ok {
		extractQueryConfig(section, &config.Query)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config
}

func extractIndexConfig(data map[string]any, index *IndexConfig) {
	if val, ok := utils.ExtractString(data, "basename"); ok {
		index.Basename = val
	}
	if val, ok := utils.ExtractString(data, "sorted_codec"); ok {
		index.SortedCodec = val
	}
	if val, ok := utils.ExtractString(data, "pointers"); ok {
		index.Pointers = val
	}
}

func extractQueryConfig(data map[string]any, query *QueryConfig) {
	if val, ok := utils.ExtractInt64(data, "default_k"); ok {
		query.DefaultK = val
	}
	if val, ok := utils.ExtractInt64(data, "max_k"); ok {
		query.MaxK = val
	}
	if val, ok := utils.ExtractString(data, "mode"); ok {
		query.Mode = val
	}
	if val, ok := utils.ExtractString(data, "separator"); ok {
		query.Separator = val
	}
	if val, ok := utils.ExtractInt64(data, "workers"); ok {
		query.Workers = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractFloat(data, "rate_limit"); ok {
		server.RateLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "burst"); ok {
		server.Burst = val
	}
	if val, ok := utils.ExtractString(data, "metrics_addr"); ok {
		server.MetricsAddr = val
	}
	if val, ok := utils.ExtractInt64(data, "max_query_len"); ok {
		server.MaxQueryLen = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "show_ids"); ok {
		cli.ShowIDs = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return err
	}
	return utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		return "builtin defaults"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
