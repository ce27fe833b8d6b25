package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	profilesPath string
	isDebug      bool
)

var rootCmd = &cobra.Command{
	Use:     "lsprobe",
	Short:   "Fleet health probe for chain nodes",
	Long:    `lsprobe probes every node of a configured fleet, measures reachability, latency, chain head and archive depth, and flags nodes lagging the fleet.`,
	Version: "0.3.1",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profilesPath, "profiles", "", "profiles YAML file overlaying the built-in networks")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}
