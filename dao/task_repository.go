package dao

import (
	"context"
	"database/sql"
	"errors"

	"bargain-backend/model"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Upsert writes the summary of a task, replacing any earlier row.
func (r *TaskRepository) Upsert(ctx context.Context, ex execer, rec model.TaskRecord) error {
	query := `
		INSERT INTO tasks (id, query, max_price, status, message, best_item_id, best_price, listed_price, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			status = VALUES(status),
			message = VALUES(message),
			best_item_id = VALUES(best_item_id),
			best_price = VALUES(best_price),
			listed_price = VALUES(listed_price),
			error = VALUES(error),
			updated_at = VALUES(updated_at)
	`
	_, err := ex.ExecContext(ctx, query,
		rec.ID, rec.Query, rec.MaxPrice, string(rec.Status), rec.Message,
		rec.BestItemID, rec.BestPrice, rec.ListedPrice, nullString(rec.Error),
		rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*model.TaskRecord, error) {
	query := `
		SELECT id, query, max_price, status, message, best_item_id, best_price, listed_price, error, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var rec model.TaskRecord
	var status string
	var bestItemID, errText sql.NullString
	var bestPrice, listedPrice sql.NullFloat64

	if err := row.Scan(&rec.ID, &rec.Query, &rec.MaxPrice, &status, &rec.Message,
		&bestItemID, &bestPrice, &listedPrice, &errText, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec.Status = model.TaskStatus(status)
	if bestItemID.Valid {
		rec.BestItemID = &bestItemID.String
	}
	if bestPrice.Valid {
		rec.BestPrice = &bestPrice.Float64
	}
	if listedPrice.Valid {
		rec.ListedPrice = &listedPrice.Float64
	}
	rec.Error = errText.String

	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
