package main

import (
	"os"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/bequest/cmd/bequest/cmd"
)

func main() {
	// Key buffers are destroyed after each use; Purge catches any left behind.
	// Signals are handled by the server command for graceful shutdown.
	code := cmd.Execute()
	memguard.Purge()
	os.Exit(code)
}
