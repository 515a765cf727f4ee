// Package main is the single-binary entrypoint for lingoleap.
package main

import "github.com/lingoleap/lingoleap/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
