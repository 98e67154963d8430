package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/graphtune/graphtune"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:   "schema",
		Usage:  "Show the engine's schema and indexes",
		Flags:  connectionFlags(),
		Action: schemaAction,
	}
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	db, _, err := openDatabase(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	admin, err := graphtune.AsAdmin(db)
	if err != nil {
		return err
	}

	graph, err := admin.Schema(ctx)
	if err != nil {
		return err
	}

	counts, err := admin.Counts(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%d nodes, %d relationships\n\n", counts.Nodes, counts.Relationships)

	for _, node := range graph.Nodes {
		fmt.Printf("(:%s)\n", node.Label)
	}

	for _, rel := range graph.Relationships {
		fmt.Printf("(:%s)-[:%s]->(:%s)\n", rel.From, rel.Type, rel.To)
	}

	indexes, err := admin.ListIndexes(ctx)
	if err != nil {
		return err
	}

	if len(indexes) > 0 {
		fmt.Println()
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
