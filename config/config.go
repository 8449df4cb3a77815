// Package config resolves the devmux configuration from flags,
// DEVMUX_-prefixed environment variables, an optional XDG-located YAML
// file, and defaults, in that priority order.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/devmux/devmux"
	"github.com/devmux/devmux/internal/version"
	"github.com/devmux/devmux/pty"
	"github.com/devmux/devmux/utils"
)

// Tab declares one supervised command.
type Tab struct {
	// Name labels the tab; defaults to the first command word.
	Name string `mapstructure:"name"`
	// Command is the shell-like command line to run.
	Command string `mapstructure:"command"`
	// Dir is the working directory; empty inherits.
	Dir string `mapstructure:"dir"`
	// Env is extra environment for the child.
	Env map[string]string `mapstructure:"env"`
	// Autostart starts the tab as soon as devmux runs.
	Autostart bool `mapstructure:"autostart"`
	// Scrollback overrides the retained row count; 0 uses the default.
	Scrollback int `mapstructure:"scrollback"`
}

// Argv parses the tab's command line into an argv.
func (t Tab) Argv() ([]string, error) {
	return pty.ParseCommand(t.Command)
}

// EnvSlice renders the env map as KEY=VALUE pairs in a stable order.
func (t Tab) EnvSlice() []string {
	if len(t.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(t.Env))
	for k := range t.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+t.Env[k])
	}
	return out
}

// DisplayName returns the tab label, falling back to the command.
func (t Tab) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	if fields := strings.Fields(t.Command); len(fields) > 0 {
		return fields[0]
	}
	return "tab"
}

// Config is the resolved devmux configuration.
type Config struct {
	// Version optionally pins the config format to a devmux release.
	Version string `mapstructure:"version"`
	Debug   bool   `mapstructure:"debug"`
	// LogFile overrides the XDG-state log location.
	LogFile string `mapstructure:"log-file"`
	// SentryDSN enables error reporting when set.
	SentryDSN string `mapstructure:"sentry-dsn"`
	// MetricsAddr serves Prometheus metrics when set; off by default.
	MetricsAddr string `mapstructure:"metrics-addr"`
	// Scrollback is the default retained row count per tab.
	Scrollback int `mapstructure:"scrollback"`
	Tabs       []Tab `mapstructure:"tabs"`
}

// Load resolves the configuration for cmd: every flag is bound through
// viper so environment variables and the config file fill in whatever
// the command line left unset.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		flagName := flag.Name
		if flagName != "config" && flagName != "help" {
			if err := v.BindPFlag(flagName, flag); err != nil {
				panic(fmt.Errorf("error binding flag %q: %w", flagName, err).Error())
			}
		}
	})

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("DEVMUX")

	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if cfgFile == "" {
		cfgFile = utils.ConfigFilePath()
	}
	if _, err := os.Stat(cfgFile); err == nil {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// viper lower-cases map keys; tab env names keep the file's case
	if b, err := os.ReadFile(cfgFile); err == nil {
		var raw struct {
			Tabs []struct{ Env map[string]string } `yaml:"tabs"`
		}
		if yaml.Unmarshal(b, &raw) == nil && len(raw.Tabs) == len(cfg.Tabs) {
			for i, tab := range raw.Tabs {
				if tab.Env != nil {
					cfg.Tabs[i].Env = tab.Env
				}
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the resolved configuration: a compatible version pin,
// at least one tab, parseable commands, unique names.
func (c *Config) Validate() error {
	if err := version.CheckConfig(c.Version); err != nil {
		return err
	}
	if len(c.Tabs) == 0 {
		return fmt.Errorf("no tabs configured; add tabs to %s", utils.ShortenHomePath(utils.ConfigFilePath()))
	}
	seen := make(map[string]bool, len(c.Tabs))
	for i, tab := range c.Tabs {
		if _, err := tab.Argv(); err != nil {
			return fmt.Errorf("tab %d: %w", i, err)
		}
		name := tab.DisplayName()
		if seen[name] {
			return fmt.Errorf("duplicate tab name %q", name)
		}
		seen[name] = true
	}
	return nil
}

// TabScrollback returns the effective scrollback for tab.
func (c *Config) TabScrollback(tab Tab) int {
	if tab.Scrollback > 0 {
		return tab.Scrollback
	}
	if c.Scrollback > 0 {
		return c.Scrollback
	}
	return devmux.DefaultScrollback
}
