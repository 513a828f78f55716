package model

import "time"

// User はダッシュボード利用ユーザーを表す。
// 初回ログインまたはゲストセッション作成時に作成され、以降は変更・削除されない。
type User struct {
	ID        string
	Email     string
	Name      string
	IsGuest   bool
	CreatedAt time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
