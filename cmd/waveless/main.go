// Package main is the waveless CLI: new/build/run/executor, the
// surface spec.md §6 describes. Commands are composed with cobra the
// way the rest of the example corpus structures multi-subcommand CLIs,
// replacing the teacher's single flat main() per binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/waveless-run/waveless/internal/config"
)

var (
	globalFlags *viper.Viper
	logger      *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:   "waveless",
		Short: "Compile a declarative project description into a self-contained API server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			resolved := config.Resolve(globalFlags)
			if resolved.Debug {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			return err
		},
	}

	globalFlags = config.Bind(root.PersistentFlags())

	root.AddCommand(newCommand(), buildCommand(), runCommand(), executorCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
