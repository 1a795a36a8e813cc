package postgresql

// migrations returns the versioned schema for promotion persistence.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS snapshots (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				environment_id TEXT NOT NULL,
				commit_reference TEXT NOT NULL DEFAULT '',
				type TEXT NOT NULL,
				metadata JSONB NOT NULL DEFAULT '{}',
				unreliable BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_snapshots_environment
				ON snapshots (tenant_id, environment_id, created_at DESC);

			CREATE TABLE IF NOT EXISTS promotions (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				source_environment TEXT NOT NULL,
				target_environment TEXT NOT NULL,
				status TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_promotions_target
				ON promotions (tenant_id, target_environment, status);

			CREATE TABLE IF NOT EXISTS logical_credentials (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				provider TEXT NOT NULL,
				name TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (tenant_id, provider, name)
			);

			CREATE TABLE IF NOT EXISTS credential_mappings (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				environment TEXT NOT NULL,
				provider TEXT NOT NULL,
				logical_credential_id UUID NOT NULL REFERENCES logical_credentials (id),
				physical_type TEXT NOT NULL DEFAULT '',
				physical_name TEXT NOT NULL DEFAULT '',
				placeholder BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (tenant_id, environment, logical_credential_id)
			);

			CREATE TABLE IF NOT EXISTS audit_log (
				id UUID PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				promotion_id TEXT NOT NULL,
				action TEXT NOT NULL,
				status TEXT NOT NULL,
				workflows_promoted INTEGER NOT NULL DEFAULT 0,
				workflows_failed INTEGER NOT NULL DEFAULT 0,
				workflows_skipped INTEGER NOT NULL DEFAULT 0,
				workflows_rolled_back INTEGER NOT NULL DEFAULT 0,
				source_snapshot_id TEXT NOT NULL DEFAULT '',
				target_pre_snapshot_id TEXT NOT NULL DEFAULT '',
				target_post_snapshot_id TEXT NOT NULL DEFAULT '',
				errors JSONB NOT NULL DEFAULT '[]',
				credential_rewrites JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_audit_log_promotion
				ON audit_log (tenant_id, promotion_id, created_at);
		`,
	}
}
