package appconfig

import (
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	Workspace     WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	Bridge        BridgeConfig    `mapstructure:"bridge" yaml:"bridge"`
	HTTP          HTTPConfig      `mapstructure:"http" yaml:"http"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// WorkspaceConfig locates the upstream workspace service.
type WorkspaceConfig struct {
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Token     string `mapstructure:"token" yaml:"token"`
	TokenFile string `mapstructure:"token_file" yaml:"token_file"`
}

// BridgeConfig controls terminal bridge behavior.
type BridgeConfig struct {
	ReconnectDelayMS         int `mapstructure:"reconnect_delay_ms" yaml:"reconnect_delay_ms"`
	KeepaliveIntervalSeconds int `mapstructure:"keepalive_interval_seconds" yaml:"keepalive_interval_seconds"`
}

// HTTPConfig configures the gateway HTTP server.
type HTTPConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Workspace: WorkspaceConfig{
			BaseURL:   "http://127.0.0.1:27500",
			Token:     "",
			TokenFile: "",
		},
		Bridge: BridgeConfig{
			ReconnectDelayMS:         3000,
			KeepaliveIntervalSeconds: 30,
		},
		HTTP: HTTPConfig{
			Addr:     ":27490",
			BaseURL:  "",
			BasePath: "",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".gitguide", "config.yaml"), nil
}
