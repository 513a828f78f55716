// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/testboard/internal/model"
)

// ErrNotFound は更新・削除対象の行が存在しない場合に返される。
// 取得系メソッドはこのエラーではなくnilを返す。
var ErrNotFound = errors.New("record not found")

// ErrConflict は一意制約違反の場合に返される。
var ErrConflict = errors.New("record already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindOrCreateByEmail はメールアドレスが一致するユーザーを返し、存在しなければ作成する。
	// 既存ユーザーの名前は変更しない。
	FindOrCreateByEmail(ctx context.Context, user *model.User) (*model.User, error)

	// Create はユーザーを作成する。IDまたはメールアドレスが重複する場合はErrConflictを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// TestCaseRepository はテストケースの永続化インターフェース。
// 削除済み（墓標）のテストケースは取得系メソッドの結果に含まれない。
type TestCaseRepository interface {
	// List は所有者の有効なテストケースを作成日時の降順で返す。
	List(ctx context.Context, ownerID string, filter model.TestCaseFilter) ([]*model.TestCase, error)

	// FindActiveByID は所有者を問わず有効なテストケースを取得する。見つからない場合はnilを返す。
	FindActiveByID(ctx context.Context, id string) (*model.TestCase, error)

	// FindActiveByOwner は所有者が一致する有効なテストケースを取得する。見つからない場合はnilを返す。
	FindActiveByOwner(ctx context.Context, id, ownerID string) (*model.TestCase, error)

	// FindActiveByScenario は(所有者, テストシナリオID)で有効なテストケースを取得する。
	// 見つからない場合はnilを返す。
	FindActiveByScenario(ctx context.Context, ownerID, scenarioID string) (*model.TestCase, error)

	// Create はテストケースを作成する。
	Create(ctx context.Context, tc *model.TestCase) error

	// Update は有効なテストケースの全フィールドを上書きする。
	// 対象が存在しない・他ユーザー所有・削除済みの場合はErrNotFoundを返す。
	Update(ctx context.Context, tc *model.TestCase) error

	// SoftDelete はテストケースを墓標状態にする。行は削除しない。
	// 対象が存在しない・他ユーザー所有・削除済みの場合はErrNotFoundを返す。
	SoftDelete(ctx context.Context, id, ownerID string, deleted model.Deleted) error
}

// EpicRepository はエピックの永続化インターフェース。
type EpicRepository interface {
	// FindOrCreate は(所有者, 名前)のエピックを返し、存在しなければ作成する。
	FindOrCreate(ctx context.Context, ownerID, name string) (*model.Epic, error)

	// Recompute は所属する有効なテストケースからpassed/totalを再計算して保存する。
	Recompute(ctx context.Context, epicID string) error

	// ListByOwner は所有者のエピックを名前順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Epic, error)
}

// PermissionRepository はダッシュボード共有権限の永続化インターフェース。
type PermissionRepository interface {
	// ListByOwner はダッシュボード所有者が付与した権限を招待日時順で返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Permission, error)

	// FindByID は指定IDの権限を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Permission, error)

	// Upsert は(所有者, ユーザー)の権限を作成する。既に存在する場合はロールを更新し、
	// 招待状態をpendingに戻す。
	Upsert(ctx context.Context, p *model.Permission) (*model.Permission, error)

	// UpdateRole はロールを変更する。見つからない場合はErrNotFoundを返す。
	UpdateRole(ctx context.Context, id string, role model.Role) error

	// UpdateStatus は招待の状態を変更する。見つからない場合はErrNotFoundを返す。
	UpdateStatus(ctx context.Context, id string, status model.PermissionStatus, acceptedAt *time.Time) error

	// Delete は権限を物理削除する。見つからない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成する。
	Create(ctx context.Context, c *model.Comment) error
	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)
	// ListByTestCase はテストケースのコメントを作成日時順で返す。
	ListByTestCase(ctx context.Context, testCaseID string) ([]*model.Comment, error)
	// UpdateContent は本文と更新日時を変更する。見つからない場合はErrNotFoundを返す。
	UpdateContent(ctx context.Context, id, content string, updatedAt time.Time) error
	// Delete はコメントを物理削除する。見つからない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id string) error
}

// AuditRepository は監査ログの永続化インターフェース。追記専用。
type AuditRepository interface {
	// Insert は監査ログを1件追記する。
	Insert(ctx context.Context, rec *model.AuditRecord) error
	// ListByUser はユーザー自身の監査ログを新しい順にlimit件返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.AuditRecord, error)
}

// TemplateRepository はテストケーステンプレートの参照インターフェース。
type TemplateRepository interface {
	// List は全テンプレートを表示順で返す。
	List(ctx context.Context) ([]*model.Template, error)
	// FindByID は指定IDのテンプレートを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Template, error)
}

// ScenarioLocker は(所有者, テストシナリオID)単位の排他ロックを提供する。
// 一括インポートの作成/更新判定を並行実行間でアトミックにするために使う。
type ScenarioLocker interface {
	// Lock はロックを取得するまでブロックし、解放関数を返す。
	Lock(ctx context.Context, ownerID, scenarioID string) (unlock func(), err error)
}
