// Package main provides the entry point for the cmdgate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/cmdgate/cmdgate/cmd/cmdgate/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
