package gate

import (
	"fmt"
	"time"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/robfig/cron/v3"
)

// checkScheduleWindow verifies the current time falls inside one of the
// policy's allowed windows. An empty window list means unrestricted.
func (e *Evaluator) checkScheduleWindow(policy models.PromotionPolicy, result *models.GateResult) {
	if len(policy.ScheduleWindows) == 0 {
		return
	}

	now := time.Now().UTC()

	for _, window := range policy.ScheduleWindows {
		open, err := windowOpen(window, now)
		if err != nil {
			result.InScheduleWindow = false
			result.Errors = append(result.Errors, fmt.Sprintf("invalid schedule window %q: %v", window.Cron, err))

			return
		}

		if open {
			return
		}
	}

	result.InScheduleWindow = false
	result.Errors = append(result.Errors, "current time is outside every allowed promotion window")
}

// windowOpen reports whether now falls inside the window: the cron
// expression names when the window opens, Duration how long it stays open.
// The window is open if an activation occurred within the last Duration.
func windowOpen(window models.ScheduleWindow, now time.Time) (bool, error) {
	schedule, err := cron.ParseStandard(window.Cron)
	if err != nil {
		return false, err
	}

	opensAt := schedule.Next(now.Add(-window.Duration))

	return !opensAt.After(now) && now.Before(opensAt.Add(window.Duration)), nil
}
