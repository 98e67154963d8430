package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/graphtune/graphtune"
)

// ErrNoQuery is returned when profile is invoked without a statement.
var ErrNoQuery = errors.New("no query given (pass as argument or pipe to stdin)")

func profileCommand() *cli.Command {
	return &cli.Command{
		Name:      "profile",
		Usage:     "Profile an ad-hoc query and print the execution plan",
		ArgsUsage: "[cypher]",
		Flags: append(connectionFlags(),
			&cli.BoolFlag{
				Name:  "explain",
				Usage: "compile the plan without executing the query",
			},
			&cli.StringMapFlag{
				Name:  "param",
				Usage: "query parameter (repeatable, key=value)",
			},
		),
		Action: profileAction,
	}
}

func profileAction(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))

	if query == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		query = strings.TrimSpace(string(data))
	}

	if query == "" {
		return ErrNoQuery
	}

	db, _, err := openDatabase(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	if !graphtune.CanProfile(db) {
		return graphtune.ErrNoProfileSupport
	}

	profiler, ok := db.(graphtune.Profiler)
	if !ok {
		return graphtune.ErrNoProfileSupport
	}

	mode := graphtune.ModeProfile
	if cmd.Bool("explain") {
		mode = graphtune.ModeExplain
	}

	params := make(map[string]any)
	for key, value := range cmd.StringMap("param") {
		params[key] = value
	}

	pl, rows, err := profiler.Profile(ctx, query, params, mode)
	if err != nil {
		return err
	}

	if pl == nil {
		fmt.Println("no plan reported")

		return nil
	}

	fmt.Println(pl.Render())
	fmt.Println()

	if mode == graphtune.ModeProfile {
		fmt.Printf("%d rows, %d total db hits, access: %s\n", len(rows), pl.TotalDBHits(), pl.AccessKind())

		if ratio := pl.CacheHitRatio(); ratio > 0 {
			fmt.Printf("page cache hit ratio: %.1f%%\n", ratio*100)
		}
	} else {
		fmt.Printf("access: %s (not executed)\n", pl.AccessKind())
	}

	return nil
}
