package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/spf13/cobra"

	"github.com/dendrascience/wfs/fusefs"
	"github.com/dendrascience/wfs/gofusefs"
	"github.com/dendrascience/wfs/util"
	"github.com/dendrascience/wfs/version"
	"github.com/dendrascience/wfs/wfs"
)

// NewMountCmd creates and returns the mount subcommand for the wfs CLI.
func NewMountCmd() *cobra.Command {
	var (
		configPath string
		flags      util.MountConfig
	)

	cmd := &cobra.Command{
		Use:   "mount IMAGE MOUNTPOINT",
		Short: "Mount a wfs image",
		Long: `Mount the wfs filesystem in IMAGE at MOUNTPOINT and serve it until
interrupted.

Settings may also come from a YAML file given with --config or named by
WFS_CONFIG. Flags on the command line take precedence over the file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := util.LoadMountConfig(configPath)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("driver") {
				config.Driver = flags.Driver
			}
			if f.Changed("allow-other") {
				config.AllowOther = flags.AllowOther
			}
			if f.Changed("read-only") {
				config.ReadOnly = flags.ReadOnly
			}
			if f.Changed("sync") {
				config.SyncWrites = flags.SyncWrites
			}
			if f.Changed("debug") {
				config.Debug = flags.Debug
			}
			if err := config.Validate(); err != nil {
				return err
			}
			return runMount(cmd.Context(), args[0], args[1], config)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file with mount settings")
	cmd.Flags().StringVar(&flags.Driver, "driver", "bazil", "FUSE library to serve with: bazil or go-fuse")
	cmd.Flags().BoolVar(&flags.AllowOther, "allow-other", false, "Allow other users to access the mount")
	cmd.Flags().BoolVar(&flags.ReadOnly, "read-only", false, "Mount read-only")
	cmd.Flags().BoolVar(&flags.SyncWrites, "sync", false, "Flush the image after every write")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "Log every filesystem request")

	return cmd
}

func runMount(ctx context.Context, image, mountpoint string, config util.MountConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if pathsOverlap(image, mountpoint) {
		return fmt.Errorf("image %s must not be inside mountpoint %s", image, mountpoint)
	}
	level, err := config.Level()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, level)

	engine, err := wfs.Open(image, wfs.Options{
		ReadOnly:   config.ReadOnly,
		SyncWrites: config.SyncWrites,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("closing image", "image", image, "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("wfs starting", "version", version.GetFullVersion(), "image", image,
		"mountpoint", mountpoint, "driver", config.Driver)

	switch config.Driver {
	case "go-fuse":
		return serveGoFuse(ctx, engine, mountpoint, config, logger)
	default:
		return serveBazil(ctx, engine, mountpoint, config, logger)
	}
}

func serveBazil(ctx context.Context, engine *wfs.FS, mountpoint string, config util.MountConfig, logger *slog.Logger) error {
	options := []fuse.MountOption{
		fuse.FSName("wfs"),
		fuse.Subtype("wfs"),
	}
	if config.AllowOther {
		options = append(options, fuse.AllowOther())
	}
	if config.ReadOnly {
		options = append(options, fuse.ReadOnly())
	}

	c, err := fuse.Mount(mountpoint, options...)
	if err != nil {
		return fmt.Errorf("mounting %s: %w", mountpoint, err)
	}
	defer c.Close()

	go func() {
		<-ctx.Done()
		logger.Info("received signal, unmounting", "mountpoint", mountpoint)
		if err := fuse.Unmount(mountpoint); err != nil {
			logger.Error("unmount failed", "mountpoint", mountpoint, "error", err)
		}
	}()

	var serveConfig fs.Config
	if config.Debug {
		serveConfig.Debug = func(msg any) {
			logger.Debug(fmt.Sprint(msg))
		}
	}
	logger.Info("wfs mounted", "mountpoint", mountpoint, "driver", "bazil")
	return fs.New(c, &serveConfig).Serve(fusefs.New(engine))
}

func serveGoFuse(ctx context.Context, engine *wfs.FS, mountpoint string, config util.MountConfig, logger *slog.Logger) error {
	server, err := gofusefs.Mount(gofusefs.Options{
		Mountpoint: mountpoint,
		Engine:     engine,
		AllowOther: config.AllowOther,
		ReadOnly:   config.ReadOnly,
		Debug:      config.Debug,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		logger.Info("received signal, unmounting", "mountpoint", mountpoint)
		if err := server.Unmount(); err != nil {
			logger.Error("unmount failed", "mountpoint", mountpoint, "error", err)
		}
	}()
	server.Wait()
	return nil
}

// pathsOverlap reports whether either path is the other or lies inside it.
// Relative paths are resolved against the working directory.
func pathsOverlap(image, mountpoint string) bool {
	a, errA := filepath.Abs(image)
	b, errB := filepath.Abs(mountpoint)
	if errA != nil || errB != nil {
		a, b = filepath.Clean(image), filepath.Clean(mountpoint)
	}
	if a == b {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(a, b+sep) || strings.HasPrefix(b, a+sep)
}
