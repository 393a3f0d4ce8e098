package main

import (
	"os"

	"github.com/odyssey-erp/bokslut/cmd/bokslutctl/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.NewJobsCLI).Execute(); err != nil {
		os.Exit(1)
	}
}
