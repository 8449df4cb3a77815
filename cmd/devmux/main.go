package main

import (
	"os"

	"github.com/devmux/devmux/cmd/devmux/command"
)

func main() {
	if err := command.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
