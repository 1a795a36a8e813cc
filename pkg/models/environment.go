package models

// Environment describes one staged execution environment of the workflow
// runtime. SnapshotPath is the folder inside the version-controlled store
// under which this environment's workflow exports live.
type Environment struct {
	ID           string `json:"id"            yaml:"id"            validate:"required"`
	TenantID     string `json:"tenant_id"     yaml:"tenant_id"     validate:"required"`
	Name         string `json:"name"          yaml:"name"          validate:"required"`
	BaseURL      string `json:"base_url"      yaml:"base_url"      validate:"required,url"`
	APIKey       string `json:"-"             yaml:"api_key"`
	SnapshotPath string `json:"snapshot_path" yaml:"snapshot_path" validate:"required"`
}
