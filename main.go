// Package main is the entry point of the sparkscan command.
package main

import (
	"context"
	"os"

	"sparkscan/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
