package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentic-research/yxflow/internal/config"
	"github.com/agentic-research/yxflow/internal/logger"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgFile string
	// rt is the app built by the root command before any subcommand runs.
	rt *app
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./yxflow.yaml, then the user config dir)")
	pf.Bool("debug", false, "Enable debug logging")
	pf.String("log-format", "human", "Log format: json or human")
	pf.String("log-file", "", "Also write logs to this file")
	pf.Int("cache-size", 0, "Parsed workflows kept for reads (0 disables)")
	pf.Bool("journal", false, "Record every written edit in the journal")
	pf.String("journal-driver", "", "Journal driver: sqlite or postgres")
	pf.String("journal-dsn", "", "Journal database (file path for sqlite, URL for postgres)")
}

// flagKeys ties persistent flags to config keys.
var flagKeys = map[string]string{
	"debug":          "debug",
	"log-format":     "log_format",
	"log-file":       "log_file",
	"cache-size":     "cache.size",
	"journal":        "journal.enabled",
	"journal-driver": "journal.driver",
	"journal-dsn":    "journal.dsn",
}

var rootCmd = &cobra.Command{
	Use:   "yxflow",
	Short: "Inspect and edit Alteryx .yxmd workflows",
	Long: `yxflow reads, edits and creates Alteryx Designer workflow files.

Every operation is available as an MCP tool (yxflow serve), over HTTP
(yxflow serve --http) and from the command line (yxflow call).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		for flag, key := range flagKeys {
			// Only flags given on the command line override the config file.
			if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
		if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
			if err := v.BindPFlag("server.http_addr", f); err != nil {
				return err
			}
		}

		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Logger())
		if err != nil {
			return err
		}
		if cfg.File != "" {
			log.Debugw("config loaded", "file", cfg.File)
		}

		rt, err = newApp(cmd.Context(), cfg, log)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if rt == nil {
			return nil
		}
		return rt.Close()
	},
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if rt != nil {
			_ = rt.Close()
		}
		os.Exit(1)
	}
}
