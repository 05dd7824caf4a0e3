package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dendrascience/wfs/disk"
	"github.com/dendrascience/wfs/util"
	"github.com/dendrascience/wfs/wfs"
)

// NewRestoreCmd creates the restore subcommand, the inverse of
// compact --backup.
func NewRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore BACKUP IMAGE",
		Short: "Unpack a backup written by compact --backup",
		Long: `Decompress BACKUP into IMAGE, replacing it. The backup's size and BLAKE3
digest are verified before IMAGE is touched. IMAGE must not be mounted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, args[0], args[1])
		},
	}
}

func runRestore(cmd *cobra.Command, backup, image string) error {
	// Refuse to replace an image someone has mounted.
	if img, err := disk.Open(image, disk.Options{}); err == nil {
		img.Close()
	} else if errors.Is(err, disk.ErrInUse) {
		return err
	}

	hdr, err := util.RestoreImage(backup, image)
	if err != nil {
		return err
	}

	img, err := disk.Open(image, disk.Options{ReadOnly: true})
	if err != nil {
		return err
	}
	defer img.Close()
	report, err := wfs.Check(img)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s (%d bytes, %d live ids)\n",
		image, backup, hdr.Size, report.LiveIDs)
	if !report.OK() {
		return fmt.Errorf("%s: restored image has %d problems; run wfs fsck", image, len(report.Problems))
	}
	return nil
}
