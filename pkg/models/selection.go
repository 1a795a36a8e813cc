package models

// ChangeType classifies how a source workflow relates to the target.
type ChangeType string

const (
	// ChangeTypeNew marks a workflow present only in the source.
	ChangeTypeNew ChangeType = "NEW"

	// ChangeTypeChanged marks a workflow whose normalized content differs
	// between source and target.
	ChangeTypeChanged ChangeType = "CHANGED"

	// ChangeTypeUnchanged marks identical normalized content on both sides.
	ChangeTypeUnchanged ChangeType = "UNCHANGED"

	// ChangeTypeStagingHotfix marks a target workflow edited after the
	// source's last change. Promoting it would clobber the hotfix, so it is
	// never auto-selected.
	ChangeTypeStagingHotfix ChangeType = "STAGING_HOTFIX"
)

// WorkflowSelection is one row of a promotion plan: a source workflow, how
// it differs from the target, and whether it is selected for promotion.
type WorkflowSelection struct {
	WorkflowID        string     `json:"workflow_id"`
	WorkflowName      string     `json:"workflow_name"`
	ChangeType        ChangeType `json:"change_type"`
	EnabledInSource   bool       `json:"enabled_in_source"`
	EnabledInTarget   bool       `json:"enabled_in_target"`
	Selected          bool       `json:"selected"`
	RequiresOverwrite bool       `json:"requires_overwrite"`
}
