package dao

import (
	"context"
	"database/sql"

	"bargain-backend/model"
)

// MessageRepository stores transcripts and per-seller negotiation logs.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) CreateMessage(ctx context.Context, ex execer, msg model.Message) error {
	query := `INSERT INTO messages (id, task_id, seller_id, direction, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := ex.ExecContext(ctx, query, msg.ID, msg.TaskID, msg.SellerID, string(msg.Direction), msg.Content, msg.CreatedAt)
	return err
}

func (r *MessageRepository) GetMessagesByTaskID(ctx context.Context, taskID string) ([]model.Message, error) {
	query := `
		SELECT id, task_id, seller_id, direction, content, created_at
		FROM messages
		WHERE task_id = ?
		ORDER BY seller_id, created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		var direction string
		if err := rows.Scan(&m.ID, &m.TaskID, &m.SellerID, &direction, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Direction = model.Direction(direction)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MessageRepository) CreateNegotiationLog(ctx context.Context, ex execer, log model.NegotiationLog) error {
	query := `
		INSERT INTO negotiation_logs (id, task_id, item_id, seller_id, listed_price, final_price, success, rounds_used, failure_reason, log_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ex.ExecContext(ctx, query,
		log.ID, log.TaskID, log.ItemID, log.SellerID, log.ListedPrice, log.FinalPrice,
		log.Success, log.RoundsUsed, nullString(log.FailureReason), log.LogTime)
	return err
}

func (r *MessageRepository) GetNegotiationLogsByTaskID(ctx context.Context, taskID string) ([]model.NegotiationLog, error) {
	query := `
		SELECT id, task_id, item_id, seller_id, listed_price, final_price, success, rounds_used, failure_reason, log_time
		FROM negotiation_logs
		WHERE task_id = ?
		ORDER BY log_time ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.NegotiationLog{}
	for rows.Next() {
		var l model.NegotiationLog
		var finalPrice sql.NullFloat64
		var reason sql.NullString
		if err := rows.Scan(&l.ID, &l.TaskID, &l.ItemID, &l.SellerID, &l.ListedPrice, &finalPrice,
			&l.Success, &l.RoundsUsed, &reason, &l.LogTime); err != nil {
			return nil, err
		}
		if finalPrice.Valid {
			l.FinalPrice = &finalPrice.Float64
		}
		l.FailureReason = reason.String
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
