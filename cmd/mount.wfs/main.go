// Command mount.wfs mounts a wfs image. It is the same as "wfs mount".
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/dendrascience/wfs/internal/cmd"
)

func main() {
	c := cmd.NewMountCmd()
	c.Use = "mount.wfs IMAGE MOUNTPOINT"
	if err := fang.Execute(context.Background(), c); err != nil {
		os.Exit(1)
	}
}
