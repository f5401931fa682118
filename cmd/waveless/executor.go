package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/waveless-run/waveless/internal/config"
	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/usecase"
)

func executorCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "executor",
		Short: "Operate on a previously built artifact",
	}
	root.AddCommand(executorRunCommand())
	return root
}

func executorRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <path> [addr]",
		Short: "Load an existing .wv artifact and serve it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := config.Resolve(globalFlags)

			body, err := os.ReadFile(args[0])
			if err != nil {
				return corerr.Wrap(500, "reading artifact file", err)
			}

			rc, err := usecase.Load(cmd.Context(), body, logger)
			if err != nil {
				return err
			}
			defer rc.Close()

			if flags.DisplayEndpoints {
				displayEndpoints(rc.Build)
			}

			var arg string
			if len(args) == 2 {
				arg = args[1]
			}
			addr := resolveAddr(arg, flags.ListenAddr, rc.Build.ExecutorSettings.ListenAddr)
			return serve(rc, addr, logger)
		},
	}
}
