package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dendrascience/wfs/version"
)

const (
	groupFilesystem = "filesystem"
	groupUtilities  = "utilities"
)

// NewRootCmd creates and returns the root cobra command for the wfs CLI.
// It sets up all subcommands, command groups, and basic configuration.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wfs",
		Short: "wfs - a log-structured filesystem in a single image file",
		Long: `wfs keeps a whole filesystem in one fixed-size image file. Every change
is appended to a log inside the image; nothing is overwritten in place.

Use subcommands to perform different operations:
  - mkfs: Format a new image
  - mount: Mount an image with FUSE
  - compact: Reclaim space held by old and deleted records
  - fsck: Check an image for consistency
  - inspect: Dump the records in an image
  - seed: Fill an image with generated test files
  - restore: Unpack a backup written by compact --backup`,
		Version:       version.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupFilesystem,
		Title: "Filesystem Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	for _, c := range []*cobra.Command{
		NewMkfsCmd(),
		NewMountCmd(),
		NewCompactCmd(),
		NewFsckCmd(),
	} {
		c.GroupID = groupFilesystem
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		NewInspectCmd(),
		NewSeedCmd(),
		NewRestoreCmd(),
		NewVersionCmd(),
	} {
		c.GroupID = groupUtilities
		rootCmd.AddCommand(c)
	}

	return rootCmd
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version.PrintVersion(cmd.OutOrStdout(), "wfs")
		},
	}
}
