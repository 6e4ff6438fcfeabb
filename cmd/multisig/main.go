// Package main is the single-binary entrypoint for the multisig daemon and CLI.
package main

import "github.com/tutu-network/multisig/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
