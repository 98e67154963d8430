package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/graphtune/graphtune"
)

// ErrBadIndexArgs is returned when index create/drop get the wrong arguments.
var ErrBadIndexArgs = errors.New("expected <name> <label> <property> for create, <name> for drop")

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Manage single-property indexes",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the engine's indexes",
				Flags:  connectionFlags(),
				Action: indexListAction,
			},
			{
				Name:      "create",
				Usage:     "Create a single-property index and wait for it to come online",
				ArgsUsage: "<name> <label> <property>",
				Flags:     connectionFlags(),
				Action:    indexCreateAction,
			},
			{
				Name:      "drop",
				Usage:     "Drop an index by name",
				ArgsUsage: "<name>",
				Flags:     connectionFlags(),
				Action:    indexDropAction,
			},
			{
				Name:   "await",
				Usage:  "Block until all indexes are online",
				Flags:  connectionFlags(),
				Action: indexAwaitAction,
			},
		},
	}
}

func openAdmin(cmd *cli.Command) (graphtune.Admin, graphtune.Database, error) { //nolint:ireturn
	db, _, err := openDatabase(cmd)
	if err != nil {
		return nil, nil, err
	}

	admin, err := graphtune.AsAdmin(db)
	if err != nil {
		_ = db.Close()

		return nil, nil, err
	}

	return admin, db, nil
}

func indexListAction(ctx context.Context, cmd *cli.Command) error {
	admin, db, err := openAdmin(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	indexes, err := admin.ListIndexes(ctx)
	if err != nil {
		return err
	}

	for _, idx := range indexes {
		fmt.Printf("%s: %s on :%s(%s) [%s]\n",
			idx.Name, idx.Type,
			strings.Join(idx.Labels, ":"),
			strings.Join(idx.Properties, ", "),
			idx.State)
	}

	return nil
}

func indexCreateAction(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 3 {
		return ErrBadIndexArgs
	}

	admin, db, err := openAdmin(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	err = admin.CreateIndex(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	// Index population is asynchronous.
	err = admin.AwaitIndexes(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("index %s online on :%s(%s)\n", args[0], args[1], args[2])

	return nil
}

func indexDropAction(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 1 {
		return ErrBadIndexArgs
	}

	admin, db, err := openAdmin(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	err = admin.DropIndex(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("dropped index %s\n", args[0])

	return nil
}

func indexAwaitAction(ctx context.Context, cmd *cli.Command) error {
	admin, db, err := openAdmin(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	return admin.AwaitIndexes(ctx)
}
