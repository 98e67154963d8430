package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/graphtune/graphtune"
)

// ErrAlreadyInitialized is returned when init would overwrite existing files.
var ErrAlreadyInitialized = errors.New("config file already exists")

const starterConfig = `backend: cypher
connection:
  uri: bolt://localhost:7687
  username: neo4j
  password: neo4j
playbooks:
  - movie-tuning.yaml
`

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a starter config and the movie-tuning playbook",
		Action: func(_ context.Context, _ *cli.Command) error {
			configName := graphtune.DefaultConfigNames[0]

			_, err := os.Stat(configName)
			if err == nil {
				return fmt.Errorf("%w: %s", ErrAlreadyInitialized, configName)
			}

			err = os.WriteFile(configName, []byte(starterConfig), 0o644) //nolint:gosec // Config file is not sensitive
			if err != nil {
				return err
			}

			err = os.WriteFile("movie-tuning.yaml", graphtune.MovieTutorialSource(), 0o644) //nolint:gosec
			if err != nil {
				return err
			}

			fmt.Printf("wrote %s and movie-tuning.yaml\n", configName)

			return nil
		},
	}
}
