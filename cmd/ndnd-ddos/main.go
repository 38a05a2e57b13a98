package main

import (
	"os"

	"github.com/named-data/ndnd-ddos/fw/cmd"
)

func main() {
	if err := cmd.CmdDdos.Execute(); err != nil {
		os.Exit(1)
	}
}
