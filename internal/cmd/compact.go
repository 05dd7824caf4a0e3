package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dendrascience/wfs/disk"
	"github.com/dendrascience/wfs/util"
	"github.com/dendrascience/wfs/wfs"
)

// NewCompactCmd creates the compact subcommand, the offline log
// collector.
func NewCompactCmd() *cobra.Command {
	var (
		backup string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "compact IMAGE",
		Short: "Reclaim space held by old and deleted records",
		Long: `Rewrite the log in IMAGE so that it keeps only the newest version of each
live file and directory. The image must not be mounted.

With --backup, a zstd-compressed copy of the image is written first and can
be unpacked with "wfs restore".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(cmd, args[0], backup, dryRun)
		},
	}

	cmd.Flags().StringVarP(&backup, "backup", "b", "", "Write a compressed backup of the image here first")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would be reclaimed without changing the image")

	return cmd
}

func runCompact(cmd *cobra.Command, image, backup string, dryRun bool) error {
	out := cmd.OutOrStdout()

	// The exclusive lock fails while the image is mounted.
	img, err := disk.Open(image, disk.Options{})
	if err != nil {
		return err
	}
	defer img.Close()

	if dryRun {
		stats, err := wfs.PlanCompact(img)
		if err != nil {
			return err
		}
		printCompactStats(cmd, stats, true)
		return nil
	}

	if backup != "" {
		hdr, err := util.BackupImage(image, backup)
		if err != nil {
			return fmt.Errorf("backing up %s: %w", image, err)
		}
		fmt.Fprintf(out, "backup written to %s (%d bytes, blake3 %x)\n", backup, hdr.Size, hdr.Digest[:8])
	}

	stats, err := wfs.Compact(img)
	if err != nil {
		return err
	}
	printCompactStats(cmd, stats, false)
	return img.Close()
}

func printCompactStats(cmd *cobra.Command, stats wfs.CompactStats, dryRun bool) {
	verb := "reclaimed"
	if dryRun {
		verb = "would reclaim"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "records: %d -> %d (%d deleted ids dropped)\nhead: %d -> %d, %s %d bytes\n",
		stats.RecordsBefore, stats.RecordsAfter, stats.Dropped,
		stats.HeadBefore, stats.HeadAfter, verb, stats.Reclaimed())
}
