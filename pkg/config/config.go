/*
Package config manages TOML config for the termspill pipeline and CLI.
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/termspill/internal/utils"
)

// Config holds the entire config structure
type Config struct {
	Sorter SorterConfig `toml:"sorter"`
	Output OutputConfig `toml:"output"`
	CLI    CliConfig    `toml:"cli"`
}

// SorterConfig holds spill and sort options.
type SorterConfig struct {
	TempDir string `toml:"temp_dir"`
	RunSize int    `toml:"run_size"`
}

// OutputConfig holds options for the emitted sorted stream.
type OutputConfig struct {
	Format string `toml:"format"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultVerify bool `toml:"default_verify"`
	ReportTop     int  `toml:"report_top"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Sorter: SorterConfig{
			TempDir: "",
			RunSize: 131072,
		},
		Output: OutputConfig{
			Format: "tsv",
		},
		CLI: CliConfig{
			DefaultVerify: false,
			ReportTop:     10,
		},
	}
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		log.Warnf("TOML parsing error in config file %s: %v", configPath, err)
		return nil, err
	}
	return config, nil
}

// SaveConfig saves the config to a TOML file
func SaveConfig(config *Config, configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		log.Errorf("Failed to create config file: %v", err)
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(config)
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
