package repository

import (
	"context"
	"sync"

	"github.com/inspiredanalyst/submanager-server/internal/models"
)

// MemoryRepository implements the Repository interface in process memory.
// It backs the server when the database is disabled (DB_DISABLED=true) and
// the test suites; data lives only as long as the process.
type MemoryRepository struct {
	mu      sync.Mutex
	sheets  map[string]models.Sheet
	order   []string
	records map[string][]models.Record
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sheets:  make(map[string]models.Sheet),
		records: make(map[string][]models.Record),
	}
}

func (r *MemoryRepository) CreateSheet(ctx context.Context, sheet *models.Sheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sheets[sheet.Name]; !exists {
		r.order = append(r.order, sheet.Name)
	}
	r.sheets[sheet.Name] = *sheet
	return nil
}

func (r *MemoryRepository) GetSheet(ctx context.Context, name string) (*models.Sheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sheet, ok := r.sheets[name]
	if !ok {
		return nil, nil
	}
	return &sheet, nil
}

func (r *MemoryRepository) ListSheets(ctx context.Context) ([]models.Sheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sheets := make([]models.Sheet, 0, len(r.order))
	for _, name := range r.order {
		sheets = append(sheets, r.sheets[name])
	}
	return sheets, nil
}

func (r *MemoryRepository) SaveRecords(ctx context.Context, sheetName string, records []models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]models.Record, len(records))
	copy(snapshot, records)
	r.records[sheetName] = snapshot
	return nil
}

func (r *MemoryRepository) GetRecords(ctx context.Context, sheetName string) ([]models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[sheetName]
	if !ok {
		return nil, nil
	}
	records := make([]models.Record, len(stored))
	copy(records, stored)
	return records, nil
}
