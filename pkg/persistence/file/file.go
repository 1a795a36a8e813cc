// Package file provides file-based persistence for promotion records. It
// exists for local development and tests; production deployments use the
// postgresql implementation.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/stagehand/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local filesystem,
// one JSON file per record.
type Persistence struct {
	root           string
	snapshotRepo   *SnapshotRepository
	promotionRepo  *PromotionRepository
	credentialRepo *CredentialRepository
	auditRepo      *AuditLogRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix on root is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:           cleanRoot,
		snapshotRepo:   &SnapshotRepository{root: cleanRoot},
		promotionRepo:  &PromotionRepository{root: cleanRoot},
		credentialRepo: &CredentialRepository{root: cleanRoot},
		auditRepo:      &AuditLogRepository{root: cleanRoot},
	}
}

func (p *Persistence) SnapshotRepository() persistence.SnapshotRepository {
	return p.snapshotRepo
}

func (p *Persistence) PromotionRepository() persistence.PromotionRepository {
	return p.promotionRepo
}

func (p *Persistence) CredentialRepository() persistence.CredentialRepository {
	return p.credentialRepo
}

func (p *Persistence) AuditLogRepository() persistence.AuditLogRepository {
	return p.auditRepo
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence there is
// nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func writeRecord(root, collection, id string, record any) error {
	dir := filepath.Join(root, collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", collection, err)
	}

	path := filepath.Join(dir, id+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write %s record: %w", collection, err)
	}

	return nil
}

func readRecord(root, collection, id string, record any) (bool, error) {
	path := filepath.Join(root, collection, id+".json")

	payload, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to read %s record: %w", collection, err)
	}

	if err := json.Unmarshal(payload, record); err != nil {
		return false, fmt.Errorf("failed to decode %s record %s: %w", collection, id, err)
	}

	return true, nil
}

func eachRecord(root, collection string, visit func(data []byte) error) error {
	dir := os.DirFS(filepath.Join(root, collection))

	files, err := fs.Glob(dir, "*.json")
	if err != nil {
		return fmt.Errorf("failed to list %s records: %w", collection, err)
	}

	for _, file := range files {
		payload, err := fs.ReadFile(dir, file)
		if err != nil {
			return fmt.Errorf("failed to read %s record %s: %w", collection, file, err)
		}

		if err := visit(payload); err != nil {
			return err
		}
	}

	return nil
}
