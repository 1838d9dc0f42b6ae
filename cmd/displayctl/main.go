package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/displaypowerd/displaypowerd/internal/displayctl"
)

func main() {
	cmdArgs, err := displayctl.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli := displayctl.NewCLI(&http.Client{}, os.Stdout, os.Stderr)

	if err := cli.Execute(cmdArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
