// Package jobs defines the progress sink the promotion executor reports
// through. The executor never owns job lifecycle; it only pushes status.
package jobs

import (
	"context"
	"log/slog"
)

// Status is a coarse job state as the orchestration layer understands it.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Update is one progress report.
type Update struct {
	Status   Status
	Progress int // percent, 0-100
	Message  string
	Result   any
	Err      error
}

// StatusSink receives progress updates for a job. Implementations must
// tolerate being called from a single promotion goroutine.
type StatusSink interface {
	UpdateStatus(ctx context.Context, jobID string, update Update)
}

// LogSink reports job progress to the structured log. It is the default
// sink when no orchestration layer is attached.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) UpdateStatus(ctx context.Context, jobID string, update Update) {
	attrs := []any{
		"job_id", jobID,
		"status", string(update.Status),
		"progress", update.Progress,
	}

	if update.Message != "" {
		attrs = append(attrs, "message", update.Message)
	}

	if update.Err != nil {
		attrs = append(attrs, "error", update.Err)
	}

	s.Logger.InfoContext(ctx, "job status", attrs...)
}
