// Package commands implements the CLI commands for scholarscrape.
package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/scholarscrape/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "scholarscrape",
	Short: "Collect Google Scholar search results into a spreadsheet",
	Long: `Scholarscrape drives a browser through Google Scholar result pages and
saves every result (title, authors, abstract, link) to a spreadsheet.

When Google shows an "unusual traffic" page the run pauses until you solve
the CAPTCHA in the browser window and press Enter.

Examples:
  # First three pages of results since 2025, newest first
  scholarscrape scrape -q "EEG Machine Learning"

  # Ten pages into a CSV file, without sorting by date
  scholarscrape scrape -q "graph neural networks" -n 10 \
      -o gnn.csv --sort-by-date=false

  # Unattended: abort instead of prompting on a block page
  scholarscrape scrape -q "sleep staging" --headless --non-interactive`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.scholarscrape.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("log-json", false, "log in JSON format")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(config.Dir())
		viper.AddConfigPath(".")
		viper.SetConfigName("." + config.AppName)
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix(strings.ToUpper(config.AppName))
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file (ignore error if not found)
	if err := viper.ReadInConfig(); err == nil {
		logInfo("Using config file: %s", viper.ConfigFileUsed())
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
