package main

import (
	"context"
	"os"

	"github.com/dukex/stagehand/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "stagehand-promoter",
		EnableShellCompletion: true,
		Usage:                 "Promote workflows from one environment to another",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the environments YAML file",
				Value:    "./environments.yaml",
				Sources:  cli.EnvVars("STAGEHAND_CONFIG"),
				Required: false,
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for promotion records (postgres:// or file://)",
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
				Name:     "tenant-id",
				Usage:    "Tenant scope for the promotion",
				Required: true,
				Sources:  cli.EnvVars("TENANT_ID"),
			},
			&cli.StringFlag{
				Name:     "source",
				Usage:    "Source environment id",
				Required: true,
				Sources:  cli.EnvVars("SOURCE_ENVIRONMENT"),
			},
			&cli.StringFlag{
				Name:     "target",
				Usage:    "Target environment id",
				Required: true,
				Sources:  cli.EnvVars("TARGET_ENVIRONMENT"),
			},
			&cli.StringFlag{
				Name:    "source-snapshot-id",
				Usage:   "Promote from a specific source snapshot instead of the latest",
				Value:   "",
				Sources: cli.EnvVars("SOURCE_SNAPSHOT_ID"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type for lifecycle notifications (kafka or gochannel; empty disables)",
				Value:   "",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the distributed promotion lease (empty uses the in-process lease)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
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

			return runPromotion(ctx, command)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
