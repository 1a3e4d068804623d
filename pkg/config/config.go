/*
Package config manages TOML config for WordLink.

The file lives at ~/.config/wordlink/config.toml by default and is created
with builtin defaults when missing. A file that fails strict decoding is
read again section by section, so a single bad value only resets that key.
*/
package config

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/bastiangx/wordlink/internal/utils"
	"github.com/bastiangx/wordlink/pkg/casing"
	"github.com/bastiangx/wordlink/pkg/entity"
	"github.com/bastiangx/wordlink/pkg/linker"
	"github.com/bastiangx/wordlink/pkg/selector"
	"github.com/charmbracelet/log"
)

// CacheOff disables the metadata cache when used as vault.cache.
const CacheOff = "off"

// Config holds the entire config structure
type Config struct {
	Matching  MatchingConfig `toml:"matching"`
	Tags      TagsConfig     `toml:"tags"`
	Locations LocationConfig `toml:"locations"`
	Vault     VaultConfig    `toml:"vault"`
	Server    ServerConfig   `toml:"server"`
	CLI       CliConfig      `toml:"cli"`
}

// MatchingConfig holds the matching policy.
type MatchingConfig struct {
	AnyPart           bool    `toml:"any_part"`
	Beginning         bool    `toml:"beginning"`
	End               bool    `toml:"end"`
	CaseSensitive     bool    `toml:"case_sensitive"`
	CapitalProportion float64 `toml:"capital_letter_proportion"`
	IncludeAliases    bool    `toml:"include_aliases"`
	ExcludeLinked     bool    `toml:"exclude_linked"`
	ExcludeSelf       bool    `toml:"exclude_self"`
	OnlyLinkOnce      bool    `toml:"only_link_once"`
	ExcludeHeaders    bool    `toml:"exclude_headers"`
	IntervalMode      string  `toml:"interval_mode"`
}

// TagsConfig names the tags that steer case and eligibility.
type TagsConfig struct {
	MatchCase  string `toml:"match_case"`
	IgnoreCase string `toml:"ignore_case"`
	Include    string `toml:"include"`
	Exclude    string `toml:"exclude"`
}

// LocationConfig limits which folders of the vault are linked to.
type LocationConfig struct {
	IncludeAll bool     `toml:"include_all"`
	Included   []string `toml:"included"`
	Excluded   []string `toml:"excluded"`
}

// VaultConfig locates the notes.
type VaultConfig struct {
	Root       string `toml:"root"`
	Cache      string `toml:"cache"`
	DebounceMS int    `toml:"debounce_ms"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxTextBytes int `toml:"max_text_bytes"`
	MaxLimit     int `toml:"max_limit"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int  `toml:"default_limit"`
	Color        bool `toml:"color"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.GetExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "wordlink")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "wordlink")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
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
// 2. Default path: [UserConfigDir]/wordlink/config.toml
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

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Matching: MatchingConfig{
			Beginning:         true,
			End:               true,
			CapitalProportion: casing.DefaultCapitalProportion,
			IncludeAliases:    true,
			ExcludeLinked:     true,
			ExcludeSelf:       true,
			OnlyLinkOnce:      true,
			ExcludeHeaders:    true,
			IntervalMode:      selector.Overlap.String(),
		},
		Tags: TagsConfig{
			MatchCase:  "linker-match-case",
			IgnoreCase: "linker-ignore-case",
			Include:    "linker-include",
			Exclude:    "linker-exclude",
		},
		Locations: LocationConfig{
			IncludeAll: true,
			Included:   []string{},
			Excluded:   []string{},
		},
		Vault: VaultConfig{
			DebounceMS: 300,
		},
		Server: ServerConfig{
			MaxTextBytes: 1 << 20,
			MaxLimit:     64,
		},
		CLI: CliConfig{
			DefaultLimit: 24,
			Color:        true,
		},
	}
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

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "matching"); ok {
		extractMatchingConfig(section, &config.Matching)
	}
	if section, ok := utils.ExtractSection(tempConfig, "tags"); ok {
		extractTagsConfig(section, &config.Tags)
	}
	if section, ok := utils.ExtractSection(tempConfig, "locations"); ok {
		extractLocationConfig(section, &config.Locations)
	}
	if section, ok := utils.ExtractSection(tempConfig, "vault"); ok {
		extractVaultConfig(section, &config.Vault)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractMatchingConfig(data map[string]any, m *MatchingConfig) {
	flags := map[string]*bool{
		"any_part":        &m.AnyPart,
		"beginning":       &m.Beginning,
		"end":             &m.End,
		"case_sensitive":  &m.CaseSensitive,
		"include_aliases": &m.IncludeAliases,
		"exclude_linked":  &m.ExcludeLinked,
		"exclude_self":    &m.ExcludeSelf,
		"only_link_once":  &m.OnlyLinkOnce,
		"exclude_headers": &m.ExcludeHeaders,
	}
	for key, dst := range flags {
		if val, ok := utils.ExtractBool(data, key); ok {
			*dst = val
		}
	}
	if val, ok := utils.ExtractFloat(data, "capital_letter_proportion"); ok {
		m.CapitalProportion = val
	}
	if val, ok := utils.ExtractString(data, "interval_mode"); ok {
		m.IntervalMode = val
	}
}

func extractTagsConfig(data map[string]any, t *TagsConfig) {
	if val, ok := utils.ExtractString(data, "match_case"); ok {
		t.MatchCase = val
	}
	if val, ok := utils.ExtractString(data, "ignore_case"); ok {
		t.IgnoreCase = val
	}
	if val, ok := utils.ExtractString(data, "include"); ok {
		t.Include = val
	}
	if val, ok := utils.ExtractString(data, "exclude"); ok {
		t.Exclude = val
	}
}

func extractLocationConfig(data map[string]any, l *LocationConfig) {
	if val, ok := utils.ExtractBool(data, "include_all"); ok {
		l.IncludeAll = val
	}
	if val, ok := utils.ExtractStrings(data, "included"); ok {
		l.Included = val
	}
	if val, ok := utils.ExtractStrings(data, "excluded"); ok {
		l.Excluded = val
	}
}

func extractVaultConfig(data map[string]any, v *VaultConfig) {
	if val, ok := utils.ExtractString(data, "root"); ok {
		v.Root = val
	}
	if val, ok := utils.ExtractString(data, "cache"); ok {
		v.Cache = val
	}
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		v.DebounceMS = val
	}
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_text_bytes"); ok {
		server.MaxTextBytes = val
	}
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
}

// extractCliConfig extracts CLI config from a map
func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractBool(data, "color"); ok {
		cli.Color = val
	}
}

// Settings converts the file sections into the policies of the index.
func (c *Config) Settings() linker.Settings {
	m := c.Matching
	return linker.Settings{
		Casing: casing.Policy{
			CaseSensitive:     m.CaseSensitive,
			CapitalProportion: m.CapitalProportion,
			MatchCaseTag:      c.Tags.MatchCase,
			IgnoreCaseTag:     c.Tags.IgnoreCase,
			IncludeAliases:    m.IncludeAliases,
		},
		Selection: selector.Policy{
			AnyPartOfWord:   m.AnyPart,
			BeginningOfWord: m.Beginning,
			EndOfWord:       m.End,
			ExcludeLinked:   m.ExcludeLinked,
			OnlyOnce:        m.OnlyLinkOnce,
			Intervals:       selector.ParseIntervalMode(m.IntervalMode),
		},
		Eligibility: entity.Eligibility{
			IncludeAll: c.Locations.IncludeAll,
			Included:   c.Locations.Included,
			Excluded:   c.Locations.Excluded,
			IncludeTag: c.Tags.Include,
			ExcludeTag: c.Tags.Exclude,
		},
		ExcludeSelf:    m.ExcludeSelf,
		ExcludeHeaders: m.ExcludeHeaders,
	}
}

// VaultRoot returns the configured vault root, with ~ expanded.
// An empty root means the current directory.
func (c *Config) VaultRoot() string {
	if c.Vault.Root == "" {
		return "."
	}
	return utils.ExpandHome(c.Vault.Root)
}

// CachePath returns where the metadata cache of root lives, or "" when
// caching is off. The default location is keyed by the absolute vault root.
func (c *Config) CachePath(root string) string {
	switch c.Vault.Cache {
	case CacheOff:
		return ""
	case "":
	default:
		return utils.ExpandHome(c.Vault.Cache)
	}
	dir, err := GetConfigDir()
	if err != nil {
		return ""
	}
	sum := sha1.Sum([]byte(utils.GetAbsolutePath(root)))
	return filepath.Join(dir, "cache", hex.EncodeToString(sum[:8])+".db")
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() (string, error) {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return "", err
	}
	return defaultPath, utils.SaveTOMLFile(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
