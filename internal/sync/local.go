package sync

import (
	"context"
	"fmt"

	"github.com/inspiredanalyst/submanager-server/internal/models"
	"github.com/inspiredanalyst/submanager-server/internal/repository"
)

// LocalBackend serves the sync loop from the repository when no remote
// collaborator is configured: the per-sheet record snapshots act as the
// durable copy.
type LocalBackend struct {
	repo repository.Repository
}

// NewLocalBackend creates a repository-backed sync backend.
func NewLocalBackend(repo repository.Repository) *LocalBackend {
	return &LocalBackend{repo: repo}
}

func (b *LocalBackend) FetchSheetNames(ctx context.Context) ([]string, error) {
	sheets, err := b.repo.ListSheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing sheets: %w", err)
	}

	names := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		names = append(names, sheet.Name)
	}
	return names, nil
}

func (b *LocalBackend) FetchRecords(ctx context.Context, sheetName string, schema models.Schema) ([]models.Record, error) {
	records, err := b.repo.GetRecords(ctx, sheetName)
	if err != nil {
		return nil, fmt.Errorf("error loading records for sheet %q: %w", sheetName, err)
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

func (b *LocalBackend) PushRecords(ctx context.Context, sheetName string, records []models.Record, schema models.Schema) error {
	if err := b.repo.SaveRecords(ctx, sheetName, records); err != nil {
		return fmt.Errorf("error saving records for sheet %q: %w", sheetName, err)
	}
	return nil
}
