// Command fsck.wfs checks a wfs image. It is the same as "wfs fsck".
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/dendrascience/wfs/internal/cmd"
)

func main() {
	c := cmd.NewFsckCmd()
	c.Use = "fsck.wfs IMAGE"
	if err := fang.Execute(context.Background(), c); err != nil {
		os.Exit(1)
	}
}
