// Package main is the entry point for the testyl CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/testyl/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
