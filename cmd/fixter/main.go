// Command fixter is a terminal assistant with per-session memory.
package main

import (
	"fmt"
	"os"

	"fixter/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
