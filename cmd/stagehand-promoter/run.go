package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dukex/stagehand/pkg/cmd"
	"github.com/dukex/stagehand/pkg/config"
	"github.com/dukex/stagehand/pkg/gitstore"
	"github.com/dukex/stagehand/pkg/jobs"
	"github.com/dukex/stagehand/pkg/log"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/otelhelper"
	"github.com/dukex/stagehand/pkg/promotion"
	"github.com/dukex/stagehand/pkg/retry"
	"github.com/dukex/stagehand/pkg/runtime"
	"github.com/dukex/stagehand/pkg/snapshot"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

func runPromotion(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("stagehand-promoter")

	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return err
	}

	source, err := cfg.Environment(command.String("source"))
	if err != nil {
		return err
	}

	target, err := cfg.Environment(command.String("target"))
	if err != nil {
		return err
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

	leases, err := cmd.NewLease(ctx, command.String("redis-url"))
	if err != nil {
		return err
	}

	var tracer trace.Tracer
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tracer, err = otelhelper.NewTracer(ctx, "stagehand-promoter")
		if err != nil {
			logger.WarnContext(ctx, "failed to initialize tracing, continuing without", "error", err)
		}
	}

	policy := retry.NewPolicy()
	snapshots := snapshot.NewManager(logger, store, persistence.SnapshotRepository(), eventBus)
	rollback := promotion.NewRollbackManager(logger, store, persistence.SnapshotRepository(), policy)
	audit := promotion.NewAuditRecorder(logger, persistence.AuditLogRepository())

	executor := promotion.NewExecutor(
		logger,
		store,
		persistence,
		snapshots,
		rollback,
		audit,
		leases,
		eventBus,
		&jobs.LogSink{Logger: logger},
		tracer,
	)

	result, err := executor.Execute(ctx, promotion.Request{
		TenantID:         command.String("tenant-id"),
		Source:           source,
		Target:           target,
		TargetClient:     runtime.NewRESTClient(target, policy),
		Policy:           cfg.Policy(target.ID),
		SourceSnapshotID: command.String("source-snapshot-id"),
	})
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, string(output))

	if result.Status != models.PromotionStatusCompleted {
		return cli.Exit("promotion failed", 1)
	}

	return nil
}
