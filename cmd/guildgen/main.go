package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "guildgen",
		Short:         "Guildgen - cached AI content generation for Discord communities",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "guildgen.yaml", "path to config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newGenerateCmd(&configPath),
		newTemplatesCmd(),
		newStatsCmd(&configPath),
		newCacheCmd(),
		newMCPCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
