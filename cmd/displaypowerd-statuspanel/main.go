package main

import (
	"github.com/displaypowerd/displaypowerd/internal/cli"
	"github.com/displaypowerd/displaypowerd/internal/statuspanel"
)

func main() {
	cli.StandardMain(
		func() cli.Configurable { return statuspanel.NewConfig() },
		statuspanel.NewHandler(nil),
	)
}
