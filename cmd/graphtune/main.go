// Package main provides the graphtune CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	// Register backends.
	_ "github.com/graphtune/graphtune/backends/cypher"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "graphtune",
		Version: version,
		Usage:   "Graph index-tuning playbook runner",
		Commands: []*cli.Command{
			runCommand(),
			loadCommand(),
			profileCommand(),
			indexCommand(),
			schemaCommand(),
			initCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
