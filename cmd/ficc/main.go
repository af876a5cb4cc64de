// Command ficc is the batch front end for the analytics library. Every
// subcommand reads JSON tasks (a single object or an array) from a file or
// stdin and writes JSON results to stdout. Logs go to stderr and optionally
// a rotating file, never to stdout.
//
// Task inputs carry an optional task_id that is echoed on the matching
// output. A task that fails keeps its slot in the output array with an
// error field; the process exits non-zero if any task failed.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/julian-hilg/ficclib/logging"
)

const version = "0.1.0"

// logger is configured once in the root pre-run and shared by subcommands.
var logger zerolog.Logger

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ficc:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "ficc",
		Short:         "Discount curve and bond analytics",
		Long:          "ficc bootstraps discount curves from market quotes, fits parametric\nyield curve families, and prices bonds with yield and risk measures.\nSubcommands consume JSON tasks on stdin or --input and emit JSON on stdout.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			var cfg logging.Config
			if err := viper.UnmarshalKey("logging", &cfg); err != nil {
				return fmt.Errorf("logging config: %w", err)
			}
			l, err := logging.New(cfg)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./ficc.yaml)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-file", "", "rotating log file path")
	root.PersistentFlags().Bool("log-console", false, "log human-readable lines to stderr")
	cobra.CheckErr(viper.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("logging.file", root.PersistentFlags().Lookup("log-file")))
	cobra.CheckErr(viper.BindPFlag("logging.console", root.PersistentFlags().Lookup("log-console")))

	root.AddCommand(newBootstrapCmd())
	root.AddCommand(newFitCmd())
	root.AddCommand(newYieldCmd())
	root.AddCommand(newAnalyzeCmd())
	return root
}

// initConfig layers defaults, an optional config file, FICC_* environment
// variables, and bound flags, in ascending precedence.
func initConfig(cfgFile string) error {
	d := logging.DefaultConfig()
	viper.SetDefault("logging.level", d.Level)
	viper.SetDefault("logging.file", d.File)
	viper.SetDefault("logging.console", false)
	viper.SetDefault("logging.max_size_mb", d.MaxSizeMB)
	viper.SetDefault("logging.max_backups", d.MaxBackups)
	viper.SetDefault("logging.max_age_days", d.MaxAgeDays)
	viper.SetDefault("analyze.concurrency", 0)

	viper.SetEnvPrefix("FICC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ficc")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
