package main

import (
	"github.com/displaypowerd/displaypowerd/internal/cli"
	"github.com/displaypowerd/displaypowerd/internal/daemon"
)

func main() {
	cli.StandardMain(
		func() cli.Configurable { return daemon.NewConfig() },
		daemon.Handler{},
	)
}
