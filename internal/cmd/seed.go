package cmd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dendrascience/wfs/util"
	"github.com/dendrascience/wfs/wfs"
)

// NewSeedCmd creates and returns the seed subcommand for the wfs CLI.
// It fills an image with generated files for testing.
func NewSeedCmd() *cobra.Command {
	var (
		fileCount int
		fanout    int
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "seed IMAGE",
		Short: "Fill an image with generated test files",
		Long: `Create --count files in IMAGE for testing. Each file holds one UUID line
and is placed in one of --fanout top-level directories chosen by a color
hash of its UUID. Stops early, without error, when the image fills up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args[0], fileCount, fanout, verbose)
		},
	}

	cmd.Flags().IntVarP(&fileCount, "count", "c", 100, "Number of files to generate")
	cmd.Flags().IntVar(&fanout, "fanout", 16, "Number of top-level directories")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	return cmd
}

func runSeed(cmd *cobra.Command, image string, fileCount, fanout int, verbose bool) error {
	out := cmd.OutOrStdout()
	if fanout < 1 || fanout > util.MaxFanout {
		return util.ErrInvalidFanout
	}

	engine, err := wfs.Open(image, wfs.Options{})
	if err != nil {
		return err
	}
	defer engine.Close()

	if verbose {
		fmt.Fprintf(out, "Generating %d test files in %s\n", fileCount, image)
	}

	created := 0
	buckets := make(map[string]int)
	for created < fileCount {
		id := uuid.New()
		key := id.String()
		bucket, err := util.BucketName(key, fanout)
		if err != nil {
			return err
		}
		if _, ok := buckets[bucket]; !ok {
			_, err := engine.Create("/", bucket, wfs.KindDir, 0o755, wfs.Cred{})
			if err != nil && !errors.Is(err, wfs.ErrExists) {
				if errors.Is(err, wfs.ErrNoSpace) {
					break
				}
				return err
			}
			buckets[bucket] = 0
		}

		// UUIDs are longer than a directory entry allows.
		name := key[:8] + ".txt"
		_, err = engine.Create("/"+bucket, name, wfs.KindFile, 0o644, wfs.Cred{})
		if errors.Is(err, wfs.ErrExists) {
			continue
		}
		if errors.Is(err, wfs.ErrNoSpace) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := engine.Write("/"+bucket+"/"+name, []byte(key+"\n"), 0); err != nil {
			if errors.Is(err, wfs.ErrNoSpace) {
				break
			}
			return err
		}

		buckets[bucket]++
		created++
		if verbose && created%100 == 0 {
			fmt.Fprintf(out, "Created %d/%d files...\n", created, fileCount)
		}
	}

	st, err := engine.Statfs()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created %d files in %d directories, %d bytes free\n", created, len(buckets), st.Free)
	if created < fileCount {
		fmt.Fprintf(out, "image full after %d of %d files\n", created, fileCount)
	}
	return engine.Close()
}
