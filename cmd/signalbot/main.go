package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envFile    string
)

func main() {
	root := &cobra.Command{
		Use:   "signalbot",
		Short: "Strategy evaluation and signal lifecycle engine",
		Long: "signalbot periodically evaluates stochastic/CCI strategies over a watchlist,\n" +
			"derives trading signals, and executes, alerts, or queues them by automation mode.",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "engine config file")
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "env file with exchange credentials")

	root.AddCommand(newRunCmd(), newExportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
