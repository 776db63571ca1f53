// Package model はドメインモデルを定義する。
package model

import "time"

// Dream はユーザーが記録した夢を表す。
// UserIDは作成時に確定し、以降変更されない（所有権の移転操作は存在しない）。
type Dream struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	Date      time.Time
	Emotions  []string
	Themes    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DreamUpdate は夢の部分更新を表す。
// nilのフィールドは変更せず、既存の値を維持する。
type DreamUpdate struct {
	Title    *string
	Content  *string
	Emotions []string
	Themes   []string
}
