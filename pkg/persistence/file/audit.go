package file

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/dukex/stagehand/pkg/models"
)

const auditCollection = "audit_log"

// AuditLogRepository stores audit entries as JSON files. Entries are
// append-only; nothing here updates or deletes.
type AuditLogRepository struct {
	root string
}

func (r *AuditLogRepository) Append(_ context.Context, entry *models.AuditLogEntry) error {
	return writeRecord(r.root, auditCollection, entry.ID, entry)
}

func (r *AuditLogRepository) ListByPromotion(_ context.Context, tenantID, promotionID string) ([]*models.AuditLogEntry, error) {
	entries := make([]*models.AuditLogEntry, 0)

	err := eachRecord(r.root, auditCollection, func(data []byte) error {
		var entry models.AuditLogEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}

		if entry.TenantID == tenantID && entry.PromotionID == promotionID {
			copied := entry
			entries = append(entries, &copied)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}
