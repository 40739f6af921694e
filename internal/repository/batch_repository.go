package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/raveone/lms-api/internal/models"
)

const batchColumns = `id, name, type, program_id, start_date, end_date, max_students, windows, status, created_at`

// BatchRepository persists cohorts.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = NewID("BATCH")
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	if batch.Status == "" {
		batch.Status = "ACTIVE"
	}
	query := `INSERT INTO batches (` + batchColumns + `)
VALUES (:id, :name, :type, :program_id, :start_date, :end_date, :max_students, :windows, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// FindByID returns a batch by ID.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns batches, optionally limited to a program, newest start first.
func (r *BatchRepository) List(ctx context.Context, programID string) ([]models.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches`
	var args []interface{}
	if programID != "" {
		query += ` WHERE program_id = $1`
		args = append(args, programID)
	}
	query += ` ORDER BY start_date DESC`
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}
