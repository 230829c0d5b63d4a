package dao

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bargain-backend/model"
)

// ResultRepository persists finished comparisons: the task summary, one log
// row per negotiation and every transcript turn, in one transaction.
type ResultRepository struct {
	db       *sql.DB
	tasks    *TaskRepository
	messages *MessageRepository
	now      func() time.Time
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{
		db:       db,
		tasks:    NewTaskRepository(db),
		messages: NewMessageRepository(db),
		now:      time.Now,
	}
}

func (r *ResultRepository) RecordResult(ctx context.Context, task model.Task) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.tasks.Upsert(ctx, tx, taskRecord(task)); err != nil {
		return fmt.Errorf("upsert task %s: %w", task.ID, err)
	}

	if task.Result != nil {
		listed := make(map[string]float64, len(task.Result.Products))
		for _, c := range task.Result.Products {
			listed[c.ID] = c.Price
		}

		logTime := r.now()
		for _, o := range task.Result.Negotiations {
			log := model.NegotiationLog{
				ID:            model.NewID(),
				TaskID:        task.ID,
				ItemID:        o.ItemID,
				SellerID:      o.SellerID,
				ListedPrice:   listed[o.ItemID],
				FinalPrice:    o.FinalPrice,
				Success:       o.Success,
				RoundsUsed:    o.RoundsUsed,
				FailureReason: o.FailureReason,
				LogTime:       logTime,
			}
			if err = r.messages.CreateNegotiationLog(ctx, tx, log); err != nil {
				return fmt.Errorf("insert negotiation log for %s: %w", o.SellerID, err)
			}

			for _, turn := range o.Transcript {
				msg := model.Message{
					ID:        model.NewID(),
					TaskID:    task.ID,
					SellerID:  o.SellerID,
					Direction: turn.Direction,
					Content:   turn.Text,
					CreatedAt: turn.Timestamp,
				}
				if err = r.messages.CreateMessage(ctx, tx, msg); err != nil {
					return fmt.Errorf("insert message for %s: %w", o.SellerID, err)
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// History loads everything stored for a task.
func (r *ResultRepository) History(ctx context.Context, taskID string) (*model.History, error) {
	rec, err := r.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	logs, err := r.messages.GetNegotiationLogsByTaskID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load negotiation logs: %w", err)
	}
	msgs, err := r.messages.GetMessagesByTaskID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return &model.History{Task: *rec, Negotiations: logs, Messages: msgs}, nil
}

func taskRecord(task model.Task) model.TaskRecord {
	rec := model.TaskRecord{
		ID:        task.ID,
		Query:     task.Query,
		MaxPrice:  task.MaxPrice,
		Status:    task.Status,
		Message:   task.Message,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
	if task.Result == nil {
		return rec
	}
	rec.Error = task.Result.Error
	if d := task.Result.BestDeal; d != nil {
		id, price, listed := d.Item.ID, d.Price, d.ListedPrice
		rec.BestItemID, rec.BestPrice, rec.ListedPrice = &id, &price, &listed
	}
	return rec
}
