package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/dmg-installer/internal/config"
	"github.com/oshokin/dmg-installer/internal/service/installer"
	"github.com/oshokin/dmg-installer/internal/version"
)

// maxPolicyArgs is the number of positional parameters a management policy may pass.
const maxPolicyArgs = 11

var (
	// configPath to the configuration YAML file.
	configPath string
	// targetVersion pins a release.
	targetVersion string
	// expectedChecksum is the SHA-256 of the disk image.
	expectedChecksum string
	// logDirectory overrides where the dated log file goes.
	logDirectory string
	// logLevel overrides the configured level.
	logLevel string
	// dryRun stops after verification.
	dryRun bool

	// rootCmd represents the base command for downloading and installing the disk image.
	rootCmd = &cobra.Command{
		Use:   "dmg-installer [policy arguments...]",
		Short: "Download, verify and install a vendor disk image",
		Long: "Download the configured disk image (latest or a pinned version), verify its SHA-256, " +
			"mount it, run the bundled package through the macOS installer, then unmount and clean up.\n\n" +
			"Positional arguments follow the management policy convention: when no checksum is configured " +
			"or passed with --checksum, the fourth argument is used as the expected checksum.",
		Args:         cobra.MaximumNArgs(maxPolicyArgs),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &installer.Options{
				ConfigPath:       configPath,
				TargetVersion:    targetVersion,
				ExpectedChecksum: expectedChecksum,
				PolicyArgs:       args,
				LogDirectory:     logDirectory,
				LogLevel:         logLevel,
				DryRun:           dryRun,
			}

			_, err := installer.Run(ctx, options)

			return err
		},
	}
)

// Execute runs the dmg-installer CLI and exits with the status matching the failure.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(newLatestCommand(), newChecksumCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(installer.ExitCode(err))
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.Flags().StringVarP(&targetVersion, "target-version", "t", "", "release to install; empty installs the latest")
	rootCmd.Flags().StringVar(&expectedChecksum, "checksum", "", "expected SHA-256 of the disk image; empty skips verification")
	rootCmd.Flags().StringVar(&logDirectory, "log-dir", "", "directory for the dated log file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "download and verify only, do not mount or install")
}
