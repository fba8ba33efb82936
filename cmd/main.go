// Package main is the entry point of the janus command.
//
// janus renders maintenance scripts from the resource and operator documents
// of a maintenance, validates those documents, and can serve the same
// operations over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"
)

var version = "0.1.0"

func main() {
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errLintFailed) {
			fmt.Fprintf(os.Stderr, "janus: %v\n", err)
		}
		os.Exit(1)
	}
}
