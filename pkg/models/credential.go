package models

import "time"

// LogicalCredential is a tenant-scoped, environment-independent credential
// name referenced inside workflow definitions.
type LogicalCredential struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id" validate:"required"`
	Provider  string    `json:"provider"  validate:"required"`
	Name      string    `json:"name"      validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialMapping resolves a logical credential to the physical
// credential of one environment. Mappings are looked up during promotion,
// never auto-created, except as disabled placeholders during gate
// preflight, marked with Placeholder.
type CredentialMapping struct {
	ID                  string    `json:"id"`
	TenantID            string    `json:"tenant_id"             validate:"required"`
	Environment         string    `json:"environment"           validate:"required"`
	Provider            string    `json:"provider"              validate:"required"`
	LogicalCredentialID string    `json:"logical_credential_id" validate:"required"`
	PhysicalType        string    `json:"physical_type"`
	PhysicalName        string    `json:"physical_name"`
	Placeholder         bool      `json:"placeholder,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// CredentialRewrite records one substitution the rewriter performed, for
// the audit trail.
type CredentialRewrite struct {
	WorkflowID     string `json:"workflow_id"`
	NodeID         string `json:"node_id"`
	CredentialType string `json:"credential_type"`
	Original       string `json:"original"`
	RewrittenTo    string `json:"rewritten_to"`
}
