package model

import "time"

// Comment はテストケースに対するコメント。作成者のみが編集・削除できる。
type Comment struct {
	ID         string
	TestCaseID string
	UserID     string
	AuthorName string
	Content    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
