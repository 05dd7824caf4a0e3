package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dendrascience/wfs/disk"
	"github.com/dendrascience/wfs/wfs"
)

// NewFsckCmd creates the fsck subcommand. It never modifies the image.
func NewFsckCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "fsck IMAGE",
		Short: "Check an image for consistency",
		Long: `Scan IMAGE and report log statistics and any inconsistencies: truncated
records, dangling or shared directory entries, and live files that no
directory reaches. Exits non-zero when problems are found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFsck(cmd, args[0], verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print log statistics")

	return cmd
}

func runFsck(cmd *cobra.Command, image string, verbose bool) error {
	out := cmd.OutOrStdout()

	img, err := disk.Open(image, disk.Options{ReadOnly: true})
	if err != nil {
		return err
	}
	defer img.Close()

	report, err := wfs.Check(img)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(out, "capacity:   %d bytes\n", report.Capacity)
		fmt.Fprintf(out, "head:       %d\n", report.Head)
		fmt.Fprintf(out, "records:    %d (%d superseded)\n", report.Records, report.Superseded)
		fmt.Fprintf(out, "live ids:   %d (%d bytes)\n", report.LiveIDs, report.LiveBytes)
		fmt.Fprintf(out, "deleted:    %d\n", report.Tombstones)
		fmt.Fprintf(out, "reclaimable: %d bytes\n", report.DeadBytes)
	}

	if report.OK() {
		fmt.Fprintf(out, "%s: clean\n", image)
		return nil
	}
	for _, p := range report.Problems {
		fmt.Fprintf(out, "  - %s\n", p)
	}
	return fmt.Errorf("%s: %d problems found", image, len(report.Problems))
}
