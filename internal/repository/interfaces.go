// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/dreamlog/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// email重複の場合はmodel.APIError（DUPLICATE_EMAIL）を返す。
	Create(ctx context.Context, user *model.User) error
}

// DreamRepository は夢データの永続化インターフェース。
type DreamRepository interface {
	// FindByID は指定IDの夢を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Dream, error)

	// ListByUserID は指定ユーザーの夢一覧をdate降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Dream, error)

	// Create は夢を作成する。
	Create(ctx context.Context, dream *model.Dream) error

	// Update は夢を部分更新し、更新後の夢を返す。
	// updのnilフィールドは変更しない。対象が存在しない場合はnilを返す。
	Update(ctx context.Context, id string, upd *model.DreamUpdate) (*model.Dream, error)

	// Delete は指定IDの夢を削除する。
	Delete(ctx context.Context, id string) error
}
