// Command mkfs.wfs formats a wfs image. It is the same as "wfs mkfs".
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/dendrascience/wfs/internal/cmd"
)

func main() {
	c := cmd.NewMkfsCmd()
	c.Use = "mkfs.wfs IMAGE"
	if err := fang.Execute(context.Background(), c); err != nil {
		os.Exit(1)
	}
}
