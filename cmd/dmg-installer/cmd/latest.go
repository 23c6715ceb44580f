package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/dmg-installer/internal/config"
	"github.com/oshokin/dmg-installer/internal/domain/release"
	"github.com/oshokin/dmg-installer/internal/logger"
	"github.com/oshokin/dmg-installer/internal/remote"
)

// newLatestCommand prints the resolved download URL and the newest published version.
func newLatestCommand() *cobra.Command {
	var pinned string

	latestCmd := &cobra.Command{
		Use:          "latest",
		Short:        "Show the download URL and the latest published version",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logger.ToContext(cmd.Context(),
				logger.Logger().Desugar().WithOptions(logger.WithLevel(zapcore.WarnLevel)).Sugar())

			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}

			cfg, err := loaded.WithOverrides(config.Overrides{TargetVersion: pinned})
			if err != nil {
				return err
			}

			source := release.Source{
				BaseURL:           cfg.BaseURL,
				LatestArtifact:    cfg.LatestArtifact,
				VersionedArtifact: cfg.VersionedArtifact,
			}

			downloadURL, err := source.DownloadURL(cfg.TargetVersion)
			if err != nil {
				return err
			}

			latestURL, err := source.LatestURL()
			if err != nil {
				return err
			}

			latest, err := remote.NewClient(remote.WithTimeout(cfg.Timeout)).
				LatestVersion(ctx, latestURL, cfg.VersionHeader)
			if err != nil {
				logger.WarnKV(ctx, "Unable to query latest version", "error", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "download url: %s\n", downloadURL)
			_, _ = fmt.Fprintf(out, "latest version: %s\n", latest)

			return nil
		},
	}

	latestCmd.Flags().StringVarP(&pinned, "target-version", "t", "", "resolve the URL of this release instead of the latest")

	return latestCmd
}
