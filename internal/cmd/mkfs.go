package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dendrascience/wfs/disk"
)

// NewMkfsCmd creates the mkfs subcommand, which writes a fresh superblock
// and root directory into an image.
func NewMkfsCmd() *cobra.Command {
	var (
		size  string
		mode  string
		uid   int
		gid   int
		force bool
	)

	cmd := &cobra.Command{
		Use:   "mkfs IMAGE",
		Short: "Format a new image",
		Long: `Format IMAGE as an empty wfs filesystem.

If IMAGE does not exist it is created with --size bytes. An existing file
keeps its size unless --size is given. Formatting a file that already holds
a wfs filesystem requires --force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, err := strconv.ParseUint(mode, 8, 32)
			if err != nil || perm > uint64(disk.PermMask) {
				return fmt.Errorf("invalid --mode %q", mode)
			}
			opts := disk.FormatOptions{
				Perm: uint32(perm),
				UID:  uint32(uid),
				GID:  uint32(gid),
			}
			var n int64
			if cmd.Flags().Changed("size") {
				if n, err = parseSize(size); err != nil {
					return err
				}
			}
			return runMkfs(cmd, args[0], n, opts, force)
		},
	}

	cmd.Flags().StringVarP(&size, "size", "s", "1M", "Image size in bytes (suffixes K, M, G)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "0755", "Permission bits of the root directory, in octal")
	cmd.Flags().IntVar(&uid, "uid", os.Getuid(), "Owner of the root directory")
	cmd.Flags().IntVar(&gid, "gid", os.Getgid(), "Group of the root directory")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing wfs filesystem")

	return cmd
}

func runMkfs(cmd *cobra.Command, path string, size int64, opts disk.FormatOptions, force bool) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if size == 0 {
			size = disk.DefaultImageSize
		}
		if err := disk.Create(path, size, opts); err != nil {
			return err
		}
	case err != nil:
		return err
	case info.IsDir():
		return fmt.Errorf("%s is a directory", path)
	default:
		if size != 0 && size != info.Size() {
			if err := os.Truncate(path, size); err != nil {
				return err
			}
		}
		if err := formatExisting(path, opts, force); err != nil {
			return err
		}
	}

	info, err = os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "formatted %s: %d bytes, %d free\n",
		path, info.Size(), info.Size()-disk.LogStart-disk.SizeInode)
	return nil
}

func formatExisting(path string, opts disk.FormatOptions, force bool) error {
	img, err := disk.Open(path, disk.Options{})
	if err != nil {
		return err
	}
	if _, err := disk.DecodeSuperBlock(img.Bytes()); err == nil && !force {
		img.Close()
		return fmt.Errorf("%s already holds a wfs filesystem; use --force to overwrite it", path)
	}
	if err := disk.Format(img, opts); err != nil {
		img.Close()
		return err
	}
	return img.Close()
}

// parseSize parses a byte count with an optional K, M or G suffix.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	shift := 0
	switch {
	case strings.HasSuffix(s, "K"):
		shift = 10
	case strings.HasSuffix(s, "M"):
		shift = 20
	case strings.HasSuffix(s, "G"):
		shift = 30
	}
	if shift != 0 {
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n > (1<<32-1)>>shift {
		return 0, fmt.Errorf("size %q exceeds the 4GiB image limit", s)
	}
	return n << shift, nil
}
