package model

import "time"

// Epic はユーザーごとのテストケースのグループを表す。
// Passed/Totalは削除されていない所属テストケースから再計算される集計値で、
// 常に 0 <= Passed <= Total を満たす。
type Epic struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Passed      int
	Total       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
