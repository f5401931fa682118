package main

import (
	"github.com/spf13/cobra"

	"github.com/waveless-run/waveless/internal/config"
	"github.com/waveless-run/waveless/internal/usecase"
)

func runCommand() *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "run [addr]",
		Short: "Build the project and serve it immediately",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := config.Resolve(globalFlags)

			build, err := buildProject(cmd.Context(), projectDir, flags)
			if err != nil {
				return err
			}
			if flags.DisplayEndpoints {
				displayEndpoints(build)
			}

			rc, err := usecase.LoadBuild(cmd.Context(), build, logger)
			if err != nil {
				return err
			}
			defer rc.Close()

			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			addr := resolveAddr(arg, flags.ListenAddr, build.ExecutorSettings.ListenAddr)
			return serve(rc, addr, logger)
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "project directory")
	return cmd
}
