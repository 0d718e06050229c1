package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"lifelink/internal/domain"
	"lifelink/internal/infra"
	"lifelink/internal/sqlinline"
)

// FeedbackPG implements domain.FeedbackStore backed by PostgreSQL.
type FeedbackPG struct {
	sql infra.SQLExecutor
}

func NewFeedbackPG(sql infra.SQLExecutor) *FeedbackPG {
	return &FeedbackPG{sql: sql}
}

func (r *FeedbackPG) Create(ctx context.Context, fb *domain.Feedback) error {
	payload, err := json.Marshal(fb)
	if err != nil {
		return err
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertFeedback, fb.ID, payload, fb.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *FeedbackPG) List(ctx context.Context) ([]domain.Feedback, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListFeedback)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.Feedback{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var fb domain.Feedback
		if err := json.Unmarshal(payload, &fb); err != nil {
			return nil, fmt.Errorf("decode feedback: %w", err)
		}
		items = append(items, fb)
	}
	return items, rows.Err()
}
