package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Digital-Shane/aftercredits/internal/addon"
	"github.com/Digital-Shane/aftercredits/internal/config"
	"github.com/Digital-Shane/aftercredits/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aftercredits",
	Short: "A Stremio add-on that tells you whether to stay after the credits",
	Long: `aftercredits answers one question for a movie: is there a scene during or
after the end credits? It asks several community sources in priority order and
caches the first answer.

Run "aftercredits serve" to expose the Stremio add-on over HTTP, or
"aftercredits lookup tt0848228" to ask from the terminal.`,
	Version:      addon.Version,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var cfgFile string

// flagKeys maps command flags onto configuration keys. A flag set on the
// command line wins over the environment and the config file.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"port":       "server.port",
	"addon-url":  "server.addon_url",
	"backend":    "cache.backend",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./aftercredits.yaml or ~/.config/aftercredits/aftercredits.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text, json, logfmt")
}

// loadConfig reads, merges and validates configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*log.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: w})
}
