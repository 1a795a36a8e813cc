package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dukex/stagehand/pkg/cmd"
	"github.com/dukex/stagehand/pkg/config"
	"github.com/dukex/stagehand/pkg/gitstore"
	"github.com/dukex/stagehand/pkg/log"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/retry"
	"github.com/dukex/stagehand/pkg/runtime"
	"github.com/dukex/stagehand/pkg/snapshot"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "stagehand-snapshotter",
		EnableShellCompletion: true,
		Usage:                 "Snapshot an environment's workflows into the version-controlled store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the environments YAML file",
				Value:   "./environments.yaml",
				Sources: cli.EnvVars("STAGEHAND_CONFIG"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for snapshot records (postgres:// or file://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "repository-path",
				Usage:    "Path to the git repository holding workflow snapshots",
				Required: true,
				Sources:  cli.EnvVars("SNAPSHOT_REPOSITORY_PATH"),
			},
			&cli.StringFlag{
				Name:     "environment",
				Usage:    "Environment id to snapshot",
				Required: true,
				Sources:  cli.EnvVars("SNAPSHOT_ENVIRONMENT"),
			},
			&cli.StringFlag{
				Name:    "type",
				Usage:   "Snapshot type (manual, auto_backup)",
				Value:   string(models.SnapshotTypeManual),
				Sources: cli.EnvVars("SNAPSHOT_TYPE"),
			},
			&cli.StringFlag{
				Name:    "reason",
				Usage:   "Free-form reason recorded on the snapshot",
				Value:   "manual snapshot",
				Sources: cli.EnvVars("SNAPSHOT_REASON"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for lifecycle notifications (kafka or gochannel; empty disables)",
				Value:   "",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			return runSnapshot(ctx, command)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func runSnapshot(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("stagehand-snapshotter")

	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return err
	}

	environment, err := cfg.Environment(command.String("environment"))
	if err != nil {
		return err
	}

	snapshotType := models.SnapshotType(command.String("type"))
	switch snapshotType {
	case models.SnapshotTypeManual, models.SnapshotTypeAutoBackup:
	default:
		return fmt.Errorf("snapshot type %s cannot be created manually", snapshotType)
	}

	store, err := gitstore.NewGitStore(command.String("repository-path"))
	if err != nil {
		return err
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
	if err != nil {
		return err
	}

	if eventBus != nil {
		defer func() {
			if err := eventBus.Close(); err != nil {
				logger.ErrorContext(ctx, "failed to close event bus", "error", err)
			}
		}()
	}

	manager := snapshot.NewManager(logger, store, persistence.SnapshotRepository(), eventBus)

	snap, err := manager.Create(ctx, environment, runtime.NewRESTClient(environment, retry.NewPolicy()), snapshotType, command.String("reason"))
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, string(output))

	return nil
}
