package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/testboard/internal/model"
)

// PostgresPermissionRepo はPostgreSQLを使用した権限リポジトリ。
type PostgresPermissionRepo struct {
	db *sql.DB
}

// NewPostgresPermissionRepo はPostgresPermissionRepoを生成する。
func NewPostgresPermissionRepo(db *sql.DB) *PostgresPermissionRepo {
	return &PostgresPermissionRepo{db: db}
}

const permissionSelect = `
	SELECT p.id, p.owner_id, p.user_id, u.name, u.email, p.role, p.status, p.invited_at, p.accepted_at
	FROM permissions p
	JOIN users u ON u.id = p.user_id`

func scanPermission(row interface{ Scan(...any) error }) (*model.Permission, error) {
	p := &model.Permission{}
	var role, status string
	var acceptedAt sql.NullTime

	err := row.Scan(&p.ID, &p.OwnerID, &p.UserID, &p.UserName, &p.UserEmail, &role, &status, &p.InvitedAt, &acceptedAt)
	if err != nil {
		return nil, err
	}
	p.Role = model.Role(role)
	p.Status = model.PermissionStatus(status)
	if acceptedAt.Valid {
		p.AcceptedAt = &acceptedAt.Time
	}
	return p, nil
}

// ListByOwner はダッシュボード所有者が付与した権限を招待日時順で返す。
func (r *PostgresPermissionRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Permission, error) {
	rows, err := r.db.QueryContext(ctx,
		permissionSelect+` WHERE p.owner_id = $1 ORDER BY p.invited_at ASC, p.id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	perms := []*model.Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate permissions: %w", err)
	}

	return perms, nil
}

// FindByID は指定IDの権限を取得する。見つからない場合はnilを返す。
func (r *PostgresPermissionRepo) FindByID(ctx context.Context, id string) (*model.Permission, error) {
	p, err := scanPermission(r.db.QueryRowContext(ctx, permissionSelect+` WHERE p.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find permission: %w", err)
	}
	return p, nil
}

// Upsert は(所有者, ユーザー)の権限を作成する。
// 既に存在する場合はロールを更新し、招待状態をpendingに戻して再招待として扱う。
func (r *PostgresPermissionRepo) Upsert(ctx context.Context, p *model.Permission) (*model.Permission, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO permissions (id, owner_id, user_id, role, status, invited_at, accepted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULL)
		 ON CONFLICT (owner_id, user_id) DO UPDATE SET
		     role = EXCLUDED.role,
		     status = EXCLUDED.status,
		     invited_at = EXCLUDED.invited_at,
		     accepted_at = NULL
		 RETURNING id`,
		p.ID, p.OwnerID, p.UserID, string(p.Role), string(p.Status), p.InvitedAt,
	).Scan(&id)
	if isForeignKeyViolation(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert permission: %w", err)
	}

	saved, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, ErrNotFound
	}
	return saved, nil
}

// UpdateRole はロールを変更する。見つからない場合はErrNotFoundを返す。
func (r *PostgresPermissionRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE permissions SET role = $2 WHERE id = $1`,
		id, string(role),
	)
	if err != nil {
		return fmt.Errorf("failed to update permission role: %w", err)
	}
	return requireAffected(result)
}

// UpdateStatus は招待の状態を変更する。見つからない場合はErrNotFoundを返す。
func (r *PostgresPermissionRepo) UpdateStatus(ctx context.Context, id string, status model.PermissionStatus, acceptedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE permissions SET status = $2, accepted_at = $3 WHERE id = $1`,
		id, string(status), acceptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update permission status: %w", err)
	}
	return requireAffected(result)
}

// Delete は権限を物理削除する。見つからない場合はErrNotFoundを返す。
func (r *PostgresPermissionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM permissions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	return requireAffected(result)
}

// compile-time interface check
var _ PermissionRepository = (*PostgresPermissionRepo)(nil)
