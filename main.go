package main

import (
	"os"

	"camtrigger/internal/cli"
	"camtrigger/internal/output"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		formatter := output.NewFormatter(os.Stderr)
		formatter.Error(err.Error())
		os.Exit(1)
	}
}
