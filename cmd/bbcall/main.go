package main

import (
	"os"

	"github.com/wippyai/crypto-bridge/cmd/bbcall/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
