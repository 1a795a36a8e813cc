package normalize

import (
	"fmt"

	"github.com/dukex/stagehand/pkg/models"
)

// Compare diffs a source workflow set against a target workflow set and
// produces one selection per source workflow. Workflows present only in the
// target are not represented: promotion never deletes.
//
// Hotfix detection is a timestamp heuristic: a target copy modified after
// the source copy is classified STAGING_HOTFIX and left unselected so it is
// never silently clobbered. The heuristic cannot tell a true independent
// edit from clock skew or an edit races between comparison and promotion;
// missing timestamps degrade the classification to CHANGED.
func Compare(source, target []*models.Workflow) ([]models.WorkflowSelection, error) {
	targetByID := make(map[string]*models.Workflow, len(target))
	for _, workflow := range target {
		targetByID[workflow.ID] = workflow
	}

	selections := make([]models.WorkflowSelection, 0, len(source))

	for _, sourceWorkflow := range source {
		selection := models.WorkflowSelection{
			WorkflowID:      sourceWorkflow.ID,
			WorkflowName:    sourceWorkflow.Name,
			EnabledInSource: sourceWorkflow.Active,
		}

		targetWorkflow, exists := targetByID[sourceWorkflow.ID]
		if !exists {
			selection.ChangeType = models.ChangeTypeNew
			selection.Selected = true
			selections = append(selections, selection)

			continue
		}

		selection.EnabledInTarget = targetWorkflow.Active

		identical, err := Equal(sourceWorkflow, targetWorkflow)
		if err != nil {
			return nil, fmt.Errorf("failed to compare workflow %s: %w", sourceWorkflow.ID, err)
		}

		switch {
		case identical:
			selection.ChangeType = models.ChangeTypeUnchanged
		case targetModifiedAfterSource(sourceWorkflow, targetWorkflow):
			selection.ChangeType = models.ChangeTypeStagingHotfix
			selection.RequiresOverwrite = true
		default:
			selection.ChangeType = models.ChangeTypeChanged
			selection.Selected = true
		}

		selections = append(selections, selection)
	}

	return selections, nil
}

func targetModifiedAfterSource(source, target *models.Workflow) bool {
	if source.UpdatedAt == nil || target.UpdatedAt == nil {
		return false
	}

	return target.UpdatedAt.After(*source.UpdatedAt)
}
