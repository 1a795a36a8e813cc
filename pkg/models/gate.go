package models

// CredentialIssueKind classifies a credential preflight finding.
type CredentialIssueKind string

const (
	CredentialIssueMissingMapping CredentialIssueKind = "missing_mapping"
	CredentialIssueDisabledTarget CredentialIssueKind = "disabled_target"
)

// CredentialIssue is one credential preflight finding for one workflow.
type CredentialIssue struct {
	WorkflowID         string              `json:"workflow_id"`
	CredentialType     string              `json:"credential_type"`
	CredentialName     string              `json:"credential_name"`
	IssueKind          CredentialIssueKind `json:"issue_kind"`
	PlaceholderCreated bool                `json:"placeholder_created"`
}

// GateResult aggregates every pre-flight check run before a promotion.
// Any entry in Errors blocks the promotion; Warnings do not.
type GateResult struct {
	DriftClean       bool `json:"drift_clean"`
	CredentialsReady bool `json:"credentials_ready"`
	NodeSupportOK    bool `json:"node_support_ok"`
	WebhooksReady    bool `json:"webhooks_ready"`
	TargetHealthy    bool `json:"target_healthy"`
	InScheduleWindow bool `json:"in_schedule_window"`

	Errors           []string          `json:"errors"`
	Warnings         []string          `json:"warnings"`
	CredentialIssues []CredentialIssue `json:"credential_issues"`
}

// Passed reports whether nothing blocks the promotion.
func (g *GateResult) Passed() bool {
	return len(g.Errors) == 0
}

// PlaceholderWorkflowIDs returns the ids of workflows for which a disabled
// placeholder mapping was created during preflight. The executor forces
// these workflows inactive on apply.
func (g *GateResult) PlaceholderWorkflowIDs() map[string]bool {
	ids := make(map[string]bool)

	for _, issue := range g.CredentialIssues {
		if issue.PlaceholderCreated {
			ids[issue.WorkflowID] = true
		}
	}

	return ids
}
