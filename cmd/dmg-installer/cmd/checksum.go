package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/dmg-installer/internal/checksum"
)

// newChecksumCommand prints the SHA-256 of a local file and optionally compares it.
func newChecksumCommand() *cobra.Command {
	var expected string

	checksumCmd := &cobra.Command{
		Use:   "checksum <file>",
		Short: "Print the SHA-256 of a local disk image",
		Long: "Print the SHA-256 of a local disk image in the format expected by --checksum. " +
			"With --expect the command fails with exit status 1 on mismatch.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			verification, err := checksum.Verify(args[0], expected)
			if verification != nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), verification.Computed)
			}

			return err
		},
	}

	checksumCmd.Flags().StringVar(&expected, "expect", "", "expected SHA-256; mismatch exits with status 1")

	return checksumCmd
}
