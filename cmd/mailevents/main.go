package main

import (
	"os"

	"example.com/mailevents/cmd/mailevents/cmd"
)

var version = "dev"

func main() {
	cmd.Version = version
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
