package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/waveless-run/waveless/internal/config"
	"github.com/waveless-run/waveless/internal/domain"
	"github.com/waveless-run/waveless/internal/usecase"
)

func buildCommand() *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Produce a binary artifact in target/",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := config.Resolve(globalFlags)

			build, err := buildProject(cmd.Context(), projectDir, flags)
			if err != nil {
				return err
			}

			if flags.DisplayEndpoints {
				displayEndpoints(build)
			}

			path, err := usecase.EmitArtifact(build, filepath.Join(projectDir, "target"))
			if err != nil {
				return err
			}
			logger.Info("artifact written", zap.String("path", path))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectDir, "project", ".", "project directory")
	return cmd
}

// displayEndpoints implements -d/--display_endpoints: print every
// resolved endpoint's method and route before the artifact is written.
func displayEndpoints(build domain.Build) {
	for _, endpoint := range build.Endpoints.All() {
		logger.Info("endpoint",
			zap.String("id", endpoint.ID),
			zap.String("method", endpoint.Method.String()),
			zap.String("route", endpoint.Route))
	}
}
