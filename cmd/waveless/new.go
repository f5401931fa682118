package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waveless-run/waveless/pkg/scaffold"
)

func newCommand() *cobra.Command {
	var skipBootstrap bool

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Scaffold a project directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := scaffold.New(name, name); err != nil {
				return err
			}
			logger.Info("scaffolded project", zap.String("project", name))

			if skipBootstrap {
				return nil
			}
			dsn := scaffold.DefaultDSN(name)
			if err := scaffold.ApplyBootstrap(cmd.Context(), name, dsn); err != nil {
				return err
			}
			logger.Info("applied bootstrap migration", zap.String("project", name))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipBootstrap, "skip-bootstrap", false, "skip applying the bootstrap migration to the scaffolded database")
	return cmd
}
