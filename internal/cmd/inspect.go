package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dendrascience/wfs/disk"
	"github.com/dendrascience/wfs/util"
)

// NewInspectCmd creates the inspect subcommand, which dumps log records.
func NewInspectCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "inspect IMAGE",
		Short: "Dump the records in an image",
		Long: `Print the superblock and the records of IMAGE with a BLAKE3 digest of each
payload. By default only the newest record of each id is shown; --all lists
every record in log order, marking superseded ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], all)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include superseded records")

	return cmd
}

func runInspect(cmd *cobra.Command, image string, all bool) error {
	out := cmd.OutOrStdout()

	img, err := disk.Open(image, disk.Options{ReadOnly: true})
	if err != nil {
		return err
	}
	defer img.Close()

	digest, err := util.GetFileHash(image)
	if err != nil {
		return err
	}
	buf := img.Bytes()
	sb, err := disk.DecodeSuperBlock(buf)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "image:    %s\n", image)
	fmt.Fprintf(out, "blake3:   %s\n", digest)
	fmt.Fprintf(out, "magic:    %#x\n", sb.Magic)
	fmt.Fprintf(out, "head:     %d of %d bytes\n\n", sb.Head, len(buf))

	var records []disk.Record
	latest := make(map[uint32]uint32)
	sc := disk.NewScanner(buf, sb.Head)
	for sc.Next() {
		rec := sc.Record()
		records = append(records, rec)
		latest[rec.Inode.ID] = rec.Offset
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tID\tTYPE\tMODE\tSIZE\tSTATE\tDIGEST")
	for _, rec := range records {
		current := latest[rec.Inode.ID] == rec.Offset
		if !all && !current {
			continue
		}
		state := "live"
		switch {
		case !current:
			state = "superseded"
		case rec.Inode.IsDeleted():
			state = "deleted"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%04o\t%d\t%s\t%s\n",
			rec.Offset, rec.Inode.ID, recordType(rec.Inode), rec.Inode.Mode&disk.PermMask,
			rec.Inode.Size, state, util.Digest(rec.Payload)[:16])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	// Records before a truncated one are still worth printing.
	return sc.Err()
}

func recordType(ino disk.Inode) string {
	switch {
	case ino.IsDir():
		return "dir"
	case ino.IsRegular():
		return "file"
	}
	return "?"
}
