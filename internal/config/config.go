// Package config loads drydock's user configuration from
// ~/.drydock/config.yaml.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/drydock-sh/drydock/internal/errors"
)

const configDir = ".drydock"
const configFileName = "config.yaml"

// Config is the on-disk configuration. Pointer fields distinguish "unset"
// from an explicit false so Merge can fill gaps from defaults.
type Config struct {
	// ClaudeHome is the agent CLI's home directory, the root of the
	// session history corpus.
	ClaudeHome string `yaml:"claude_home"`
	// BranchPrefix is prepended to branch names when materializing an
	// orchestration plan.
	BranchPrefix string `yaml:"branch_prefix"`
	// AutoAllowTools are tool names approved without asking. Interactive
	// tools are never auto-approved regardless of this list.
	AutoAllowTools []string `yaml:"auto_allow_tools"`
	// Notifications toggles desktop notifications.
	Notifications *bool `yaml:"notifications"`
	// StrictControl makes double resolution of a control request panic
	// instead of logging.
	StrictControl *bool `yaml:"strict_control"`
}

// Path returns the config file location under the user's home directory.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.ConfigLoadFailed(configFileName, err)
	}
	return filepath.Join(home, configDir, configFileName), nil
}

// Load reads and parses the config file at fp.
// Returns nil, nil if the file does not exist.
func Load(fp string) (*Config, error) {
	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.ConfigLoadFailed(fp, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.ConfigLoadFailed(fp, err)
	}

	return &cfg, nil
}

// LoadAndMerge loads the config file and merges with defaults.
// If no config file exists, returns the default config.
func LoadAndMerge(fp string) (*Config, error) {
	cfg, err := Load(fp)
	if err != nil {
		return nil, err
	}

	defaults := DefaultConfig()
	if cfg == nil {
		return defaults, nil
	}

	merged := Merge(cfg, defaults)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// DefaultConfig returns a Config matching the built-in behavior.
func DefaultConfig() *Config {
	notifications := true
	strictControl := false

	home, err := os.UserHomeDir()
	claudeHome := ".claude"
	if err == nil {
		claudeHome = filepath.Join(home, ".claude")
	}

	return &Config{
		ClaudeHome:    claudeHome,
		BranchPrefix:  "drydock/",
		Notifications: &notifications,
		StrictControl: &strictControl,
	}
}

// Merge fills in missing values in partial from defaults.
// partial takes precedence; defaults fill gaps. AutoAllowTools is not
// merged: a config that lists tools fully replaces the default (empty)
// list.
func Merge(partial, defaults *Config) *Config {
	result := *partial

	if result.ClaudeHome == "" {
		result.ClaudeHome = defaults.ClaudeHome
	}
	if result.BranchPrefix == "" {
		result.BranchPrefix = defaults.BranchPrefix
	}
	if result.Notifications == nil {
		result.Notifications = defaults.Notifications
	}
	if result.StrictControl == nil {
		result.StrictControl = defaults.StrictControl
	}

	return &result
}

// Validate rejects settings that would poison downstream consumers. The
// branch prefix ends up prepended to every materialized branch name, so
// it has to be a legal branch fragment itself.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.BranchPrefix, " \t\n") {
		return errors.ConfigInvalid("branch_prefix must not contain whitespace")
	}
	if strings.HasPrefix(c.BranchPrefix, "-") {
		return errors.ConfigInvalid("branch_prefix must not start with '-'")
	}
	return nil
}

// NotificationsEnabled reports the effective notification setting.
func (c *Config) NotificationsEnabled() bool {
	return c.Notifications != nil && *c.Notifications
}

// StrictControlEnabled reports the effective strict-control setting.
func (c *Config) StrictControlEnabled() bool {
	return c.StrictControl != nil && *c.StrictControl
}

// IsAutoAllowed reports whether the named tool is on the auto-approval
// list.
func (c *Config) IsAutoAllowed(tool string) bool {
	for _, name := range c.AutoAllowTools {
		if name == tool {
			return true
		}
	}
	return false
}
