package command

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/devmux/devmux/utils"
)

func configCmd() *cobra.Command {
	configPath := utils.ConfigFilePath()
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage devmux configuration",
		Long: fmt.Sprintf(`Manage the devmux configuration file.

Config file: %s

This follows the XDG Base Directory Specification.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (DEVMUX_ prefix)
  3. Config file
  4. Default values`, configPath),
	}

	cmd.AddCommand(configPathCmd())
	cmd.AddCommand(configViewCmd())
	cmd.AddCommand(configEditCmd())

	return cmd
}

func configPathCmd() *cobra.Command {
	configPath := utils.ConfigFilePath()
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show the path to the config file",
		Long: fmt.Sprintf(`Show the path to the config file.

Config file: %s`, configPath),
		Example: `  # Show config file path:
  devmux config path

  # Create config file directory:
  mkdir -p "$(dirname "$(devmux config path)")"`,
		RunE: configPathRunE,
	}

	return cmd
}

func configViewCmd() *cobra.Command {
	configPath := utils.ConfigFilePath()
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View the config file contents",
		Long: fmt.Sprintf(`View the config file contents.

Config file: %s

If the config file exists, this command displays its contents. If it doesn't
exist, this command shows an example config file that you can use as a template.`, configPath),
		Example: `  # View current config:
  devmux config view

  # View and save as new config:
  devmux config view > "$(devmux config path)"`,
		RunE: configViewRunE,
	}

	return cmd
}

func configEditCmd() *cobra.Command {
	configPath := utils.ConfigFilePath()
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the config file",
		Long: fmt.Sprintf(`Edit the config file in your default editor.

Config file: %s

This command opens the config file in your editor (determined by $VISUAL, $EDITOR,
or a sensible default). If the config file doesn't exist, it creates a template
with example settings and comments.

The config directory is created automatically if it doesn't exist.`, configPath),
		Example: `  # Edit config file:
  devmux config edit

  # Use a specific editor:
  EDITOR=nano devmux config edit`,
		RunE: configEditRunE,
	}

	return cmd
}

func configPathRunE(c *cobra.Command, args []string) error {
	fmt.Println(utils.ConfigFilePath())
	return nil
}

func configViewRunE(c *cobra.Command, args []string) error {
	configPath := utils.ConfigFilePath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Println("# Config file does not exist. Example config:")
		fmt.Println()
		fmt.Print(exampleConfig())
		return nil
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	fmt.Print(string(content))
	return nil
}

func configEditRunE(c *cobra.Command, args []string) error {
	configPath := utils.ConfigFilePath()
	configDir := utils.ConfigDir()

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(exampleConfig()), 0600); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := getEditor()

	cmd := exec.Command(editor, configPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}

	if err := validateConfig(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file has syntax errors: %v\n", err)
		fmt.Fprintf(os.Stderr, "Edit again with 'devmux config edit' or view with 'devmux config view'.\n")
	}

	return nil
}

// getEditor returns the editor to use, checking $VISUAL, $EDITOR, then defaults.
func getEditor() string {
	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}

	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}

	switch runtime.GOOS {
	case "windows":
		return "notepad"
	default:
		if _, err := exec.LookPath("nano"); err == nil {
			return "nano"
		}
		return "vi"
	}
}

// validateConfig parses the config file and flags top-level keys the
// loader would silently ignore, so key typos surface right after the
// edit instead of at the next run.
func validateConfig(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	known := map[string]bool{
		"version":      true,
		"debug":        true,
		"log-file":     true,
		"sentry-dsn":   true,
		"metrics-addr": true,
		"scrollback":   true,
		"tabs":         true,
	}
	for key := range doc {
		if !known[key] {
			return fmt.Errorf("unknown key %q", key)
		}
	}
	return nil
}

// exampleConfig returns an example config file with comments.
func exampleConfig() string {
	return `# Devmux Configuration File
#
# This file follows the XDG Base Directory Specification.
# Settings here are overridden by environment variables (DEVMUX_*) and
# command-line flags.

# Pin the config format to a devmux release (optional)
# version: 0.3.1

# Debug logging (default: false)
# debug: true

# Log file location (default: XDG state directory)
# log-file: /tmp/devmux.log

# Serve Prometheus metrics on this address (default: off)
# metrics-addr: 127.0.0.1:9090

# Default retained scrollback rows per tab (default: 2000)
# scrollback: 5000

# Tabs to supervise. Each tab runs one command in its own
# pseudo-terminal. Press 1-9 to focus a tab, t to toggle it, r to
# restart it, i for interactive pass-through, q to quit.
tabs:
  - name: web
    command: npm run dev
    dir: ./web
    autostart: true
    env:
      PORT: "3000"
  - name: api
    command: go run ./cmd/api
    autostart: true
  - name: db
    command: docker compose up postgres
    scrollback: 500
`
}
