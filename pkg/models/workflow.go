// Package models defines the core domain models for promoting workflow
// definitions between staged environments.
package models

import "time"

// CredentialRef is a node-level reference to a credential, keyed by
// credential type inside Node.Credentials. The ID is environment-specific;
// the Name is the logical handle promotions compare and rewrite.
type CredentialRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Node is a single node of a workflow definition.
type Node struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"        validate:"required"`
	Type        string                   `json:"type"        validate:"required"`
	TypeVersion float64                  `json:"typeVersion,omitempty"`
	Position    []float64                `json:"position,omitempty"`
	Parameters  map[string]any           `json:"parameters,omitempty"`
	Credentials map[string]CredentialRef `json:"credentials,omitempty"`
	Disabled    bool                     `json:"disabled,omitempty"`
	WebhookID   string                   `json:"webhookId,omitempty"`
}

// Workflow is a workflow definition as the runtime API exposes it. The
// document is treated as opaque beyond the fields promotion needs;
// Connections and Settings round-trip untouched.
type Workflow struct {
	ID           string         `json:"id"`
	Name         string         `json:"name" validate:"required"`
	Active       bool           `json:"active"`
	Nodes        []*Node        `json:"nodes"`
	Connections  map[string]any `json:"connections"`
	Settings     map[string]any `json:"settings,omitempty"`
	Tags         []Tag          `json:"tags,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
	PinData      map[string]any `json:"pinData,omitempty"`
	VersionID    string         `json:"versionId,omitempty"`
	TriggerCount int            `json:"triggerCount,omitempty"`
	Shared       []any          `json:"shared,omitempty"`
	CreatedAt    *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time     `json:"updatedAt,omitempty"`
}

// Tag is workflow labeling metadata. Tag IDs differ per environment and are
// stripped during normalization; names survive.
type Tag struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}
