package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/inspiredanalyst/submanager-server/internal/models"
)

// Repository interface defines the persistence operations the service and
// sync engine need: sheet schema descriptors plus per-sheet record
// snapshots. The remote collaborator has no schema endpoint, so
// descriptors always live here; record snapshots double as the local
// fallback store when no remote is configured.
type Repository interface {
	// Sheet schema operations
	CreateSheet(ctx context.Context, sheet *models.Sheet) error
	GetSheet(ctx context.Context, name string) (*models.Sheet, error)
	ListSheets(ctx context.Context) ([]models.Sheet, error)

	// Record snapshot operations
	SaveRecords(ctx context.Context, sheetName string, records []models.Record) error
	GetRecords(ctx context.Context, sheetName string) ([]models.Record, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// Sheet repository methods
func (r *PostgresRepository) CreateSheet(ctx context.Context, sheet *models.Sheet) error {
	query := `
		INSERT INTO sheets (name, schema_type, columns, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if sheet.CreatedAt.IsZero() {
		sheet.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		sheet.Name, sheet.SchemaType, sheet.Columns, sheet.CreatedAt)

	return err
}

func (r *PostgresRepository) GetSheet(ctx context.Context, name string) (*models.Sheet, error) {
	query := `SELECT * FROM sheets WHERE name = $1`

	var sheet models.Sheet
	err := r.db.GetContext(ctx, &sheet, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Sheet not found
		}
		return nil, err
	}

	return &sheet, nil
}

func (r *PostgresRepository) ListSheets(ctx context.Context) ([]models.Sheet, error) {
	query := `SELECT * FROM sheets ORDER BY created_at ASC`

	var sheets []models.Sheet
	err := r.db.SelectContext(ctx, &sheets, query)
	if err != nil {
		return nil, err
	}

	return sheets, nil
}

// Record snapshot methods. Snapshots are stored whole, one JSON array per
// sheet, matching the whole-collection-replace contract of the remote.
func (r *PostgresRepository) SaveRecords(ctx context.Context, sheetName string, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("error encoding records for sheet %q: %w", sheetName, err)
	}

	query := `
		INSERT INTO sheet_records (sheet_name, records, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sheet_name) DO UPDATE
		SET records = EXCLUDED.records, updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, sheetName, data, time.Now().UTC())
	return err
}

func (r *PostgresRepository) GetRecords(ctx context.Context, sheetName string) ([]models.Record, error) {
	query := `SELECT records FROM sheet_records WHERE sheet_name = $1`

	var data []byte
	err := r.db.GetContext(ctx, &data, query, sheetName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No snapshot yet
		}
		return nil, err
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("error decoding records for sheet %q: %w", sheetName, err)
	}

	return records, nil
}
