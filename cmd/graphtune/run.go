package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/graphtune/graphtune"
	"github.com/graphtune/graphtune/runner"
)

var (
	ErrNoBackend        = errors.New("no backend specified (use --backend or .graphtune.yaml)")
	ErrNoConnectionURI  = errors.New("no connection URI specified (use --uri or .graphtune.yaml)")
	ErrNoTargetDatabase = errors.New("--create-database requires --database")
)

func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "backend to use (overrides config)",
		},
		&cli.StringFlag{
			Name:    "uri",
			Usage:   "database connection URI",
			Sources: cli.EnvVars("GRAPHTUNE_URI"),
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "database username",
			Sources: cli.EnvVars("GRAPHTUNE_USER"),
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "database password",
			Sources: cli.EnvVars("GRAPHTUNE_PASS"),
		},
		&cli.StringFlag{
			Name:    "database",
			Usage:   "named database to run against",
			Sources: cli.EnvVars("GRAPHTUNE_DB"),
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log statements and timings to stderr",
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run tuning playbooks",
		ArgsUsage: "[playbook files...]",
		Flags: append(connectionFlags(),
			&cli.StringSliceFlag{
				Name:  "stage",
				Usage: "run only the named stages",
			},
			&cli.StringFlag{
				Name:  "run",
				Usage: "run only steps matching pattern",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output results as JSON",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose output",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "stop on first failure",
			},
		),
		Action: runAction,
	}
}

func loadCommand() *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Load the movie demo graph (idempotent; safe to re-run)",
		Flags: append(connectionFlags(),
			&cli.BoolFlag{
				Name:  "create-database",
				Usage: "create the target database (requires --database and multi-database support)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output results as JSON",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose output",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("create-database") {
				err := createTargetDatabase(ctx, cmd)
				if err != nil {
					return err
				}
			}

			return runPlaybooks(ctx, cmd, []*graphtune.Playbook{graphtune.MovieTutorial()}, []string{"setup", "ingest"})
		},
	}
}

// createTargetDatabase declares the database named by --database before the
// ingest session binds to it.
func createTargetDatabase(ctx context.Context, cmd *cli.Command) error {
	name := cmd.String("database")
	if name == "" {
		return ErrNoTargetDatabase
	}

	db, _, err := openDatabase(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	admin, err := graphtune.AsAdmin(db)
	if err != nil {
		return err
	}

	return admin.CreateDatabase(ctx, name)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	playbooks, err := collectPlaybooks(cmd.Args().Slice())
	if err != nil {
		return err
	}

	return runPlaybooks(ctx, cmd, playbooks, cmd.StringSlice("stage"))
}

// collectPlaybooks loads the given files, falling back to config-declared
// playbooks and finally the embedded tutorial.
func collectPlaybooks(args []string) ([]*graphtune.Playbook, error) {
	if len(args) == 0 {
		configPath, err := graphtune.FindConfig(".")
		if err == nil {
			cfg, err := graphtune.LoadConfigFile(configPath)
			if err == nil {
				for _, pb := range cfg.Playbooks {
					args = append(args, resolvePath(configPath, pb))
				}
			}
		}
	}

	if len(args) == 0 {
		return []*graphtune.Playbook{graphtune.MovieTutorial()}, nil
	}

	playbooks := make([]*graphtune.Playbook, 0, len(args))

	for _, arg := range args {
		pb, err := graphtune.LoadPlaybook(arg)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", arg, err)
		}

		playbooks = append(playbooks, pb)
	}

	return playbooks, nil
}

func runPlaybooks(ctx context.Context, cmd *cli.Command, playbooks []*graphtune.Playbook, stages []string) error {
	db, log, err := openDatabase(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = db.Close() }()

	var formatHandler runner.Handler

	var tuiHandler *runner.TUIHandler

	switch {
	case cmd.Bool("json"):
		formatHandler = runner.NewFormatHandler(runner.NewJSONFormatter(os.Stdout), os.Stderr)
	case cmd.Bool("verbose"):
		formatHandler = runner.NewFormatHandler(runner.NewVerboseFormatter(os.Stdout), os.Stderr)
	default:
		tuiHandler = runner.NewTUIHandler(os.Stdout, os.Stderr)
		for _, pb := range playbooks {
			tuiHandler.SetPlaybook(pb)
		}

		err := tuiHandler.Start()
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}

		formatHandler = tuiHandler
	}

	var totalResult *runner.Result

	for _, pb := range playbooks {
		r := runner.New(
			runner.WithDatabase(db),
			runner.WithHandler(formatHandler),
			runner.WithFailFast(cmd.Bool("fail-fast")),
			runner.WithFilter(cmd.String("run")),
			runner.WithStages(stages...),
			runner.WithLogger(log),
		)

		result, err := r.Run(ctx, pb)
		if err != nil {
			return fmt.Errorf("running %s: %w", pb.Name, err)
		}

		if totalResult == nil {
			totalResult = result
		} else {
			totalResult.Merge(result)
		}
	}

	if totalResult != nil {
		if summarizer, ok := formatHandler.(runner.Summarizer); ok {
			_ = summarizer.Summary(totalResult)
		}

		if !totalResult.Ok() {
			return cli.Exit("", 1)
		}
	}

	return nil
}

// openDatabase builds the connection from flags, falling back to the
// nearest config file, and opens the backend.
func openDatabase(cmd *cli.Command) (graphtune.Database, *zap.Logger, error) { //nolint:ireturn
	backend := cmd.String("backend")
	cfg := graphtune.ConnectionConfig{
		URI:      cmd.String("uri"),
		Username: cmd.String("username"),
		Password: cmd.String("password"),
		Database: cmd.String("database"),
	}

	if backend == "" || cfg.URI == "" {
		loaded, err := graphtune.LoadConfig(".")
		if err == nil {
			if backend == "" {
				backend = loaded.Backend
			}

			if cfg.URI == "" {
				database := cfg.Database
				cfg = loaded.Connection

				if database != "" {
					cfg.Database = database
				}
			}
		}
	}

	if backend == "" {
		return nil, nil, ErrNoBackend
	}

	if cfg.URI == "" {
		return nil, nil, ErrNoConnectionURI
	}

	log := zap.NewNop()

	if cmd.Bool("debug") {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}

		log = dev
	}

	cfg.Logger = log

	db, err := graphtune.New(backend, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open backend: %w", err)
	}

	return db, log, nil
}

// resolvePath makes playbook paths in config relative to the config file.
func resolvePath(configPath, playbook string) string {
	if filepath.IsAbs(playbook) {
		return playbook
	}

	return filepath.Join(filepath.Dir(configPath), playbook)
}
