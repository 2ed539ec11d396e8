package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultConfig = `# how long to wait for a gesture before giving up on an unlock request
unlock:
  timeout: 30s
  # bound on a single unlock attempt, including the startup attempt
  attempt_timeout: 5s

# defaults for every autoplay attempt
autoplay:
  # playback volume (0.0 to 1.0)
  volume: 1.0
  # extra attempts after the first strategies fail
  retry_attempts: 3
  # multiplied by the attempt number between retries
  retry_base_delay: 500ms
  # how long a muted start stays muted on mobile
  unmute_delay: 100ms
  # start muted on mobile when audible playback is blocked
  fallback_to_muted: true

session:
  # where the unlock flag is kept (default: user cache dir)
  # dir: "~/.cache/autoplay/sessions"
  # keep the flag in memory only
  ephemeral: false

audio:
  sample_rate: 44100
  channels: 2
  # output buffer (0 picks a platform default)
  buffer_size: 0s
  # suspend audio when the terminal loses focus
  suspend_on_blur: false
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the autoplay config file",
	Long:    paragraph(fmt.Sprintf("\n%s the autoplay config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("autoplay config\nautoplay config --config path/to/config.yml\nautoplay config show"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Autoplay", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, _, err := loadConfig(); err != nil {
			return err
		}
		return writeConfig(cmd.OutOrStdout(), viper.AllSettings())
	},
}

// writeConfig prints settings as YAML with durations in their string form.
func writeConfig(w io.Writer, settings map[string]any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(readable(settings)); err != nil {
		return fmt.Errorf("unable to encode config: %w", err)
	}
	return enc.Close() //nolint:wrapcheck
}

func readable(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		switch v := v.(type) {
		case map[string]any:
			out[k] = readable(v)
		case time.Duration:
			out[k] = v.String()
		default:
			out[k] = v
		}
	}
	return out
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
