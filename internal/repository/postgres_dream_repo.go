package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/dreamlog/internal/model"
)

// PostgresDreamRepo はPostgreSQLを使用した夢リポジトリ。
type PostgresDreamRepo struct {
	db *sql.DB
}

// NewPostgresDreamRepo はPostgresDreamRepoを生成する。
func NewPostgresDreamRepo(db *sql.DB) *PostgresDreamRepo {
	return &PostgresDreamRepo{db: db}
}

// FindByID は指定IDの夢を取得する。見つからない場合はnilを返す。
func (r *PostgresDreamRepo) FindByID(ctx context.Context, id string) (*model.Dream, error) {
	dream := &model.Dream{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, date, emotions, themes, created_at, updated_at
		 FROM dreams WHERE id = $1`,
		id,
	).Scan(
		&dream.ID, &dream.UserID, &dream.Title, &dream.Content, &dream.Date,
		pq.Array(&dream.Emotions), pq.Array(&dream.Themes),
		&dream.CreatedAt, &dream.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find dream by ID: %w", err)
	}

	return dream, nil
}

// ListByUserID は指定ユーザーの夢一覧をdate降順で返す。
func (r *PostgresDreamRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Dream, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, content, date, emotions, themes, created_at, updated_at
		 FROM dreams WHERE user_id = $1 ORDER BY date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dreams: %w", err)
	}
	defer rows.Close()

	dreams := []*model.Dream{}
	for rows.Next() {
		dream := &model.Dream{}
		err := rows.Scan(
			&dream.ID, &dream.UserID, &dream.Title, &dream.Content, &dream.Date,
			pq.Array(&dream.Emotions), pq.Array(&dream.Themes),
			&dream.CreatedAt, &dream.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dream: %w", err)
		}
		dreams = append(dreams, dream)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dreams: %w", err)
	}

	return dreams, nil
}

// Create は夢を作成する。
func (r *PostgresDreamRepo) Create(ctx context.Context, dream *model.Dream) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dreams (id, user_id, title, content, date, emotions, themes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		dream.ID, dream.UserID, dream.Title, dream.Content, dream.Date,
		pq.Array(dream.Emotions), pq.Array(dream.Themes),
		dream.CreatedAt, dream.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dream: %w", err)
	}

	return nil
}

// Update は夢を部分更新し、更新後の夢を返す。
// updのnilフィールドはCOALESCEにより既存の値を維持する。
// 対象が存在しない場合はnilを返す。
func (r *PostgresDreamRepo) Update(ctx context.Context, id string, upd *model.DreamUpdate) (*model.Dream, error) {
	// nilスライスはNULLとしてバインドされ、COALESCEで既存値が維持される
	var emotions, themes interface{}
	if upd.Emotions != nil {
		emotions = pq.Array(upd.Emotions)
	}
	if upd.Themes != nil {
		themes = pq.Array(upd.Themes)
	}

	dream := &model.Dream{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE dreams
		 SET title      = COALESCE($2, title),
		     content    = COALESCE($3, content),
		     emotions   = COALESCE($4, emotions),
		     themes     = COALESCE($5, themes),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING id, user_id, title, content, date, emotions, themes, created_at, updated_at`,
		id, upd.Title, upd.Content, emotions, themes,
	).Scan(
		&dream.ID, &dream.UserID, &dream.Title, &dream.Content, &dream.Date,
		pq.Array(&dream.Emotions), pq.Array(&dream.Themes),
		&dream.CreatedAt, &dream.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update dream: %w", err)
	}

	return dream, nil
}

// Delete は指定IDの夢を削除する。
func (r *PostgresDreamRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM dreams WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete dream: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("dream not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ DreamRepository = (*PostgresDreamRepo)(nil)
