package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/testboard/internal/model"
)

// PostgresAuditRepo はPostgreSQLを使用した監査ログリポジトリ。
type PostgresAuditRepo struct {
	db *sql.DB
}

// NewPostgresAuditRepo はPostgresAuditRepoを生成する。
func NewPostgresAuditRepo(db *sql.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db}
}

// jsonbArg は空のJSONをNULLとして渡す。
func jsonbArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Insert は監査ログを1件追記する。
func (r *PostgresAuditRepo) Insert(ctx context.Context, rec *model.AuditRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, table_name, record_id, old_values, new_values, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9)`,
		rec.ID, rec.UserID, string(rec.Action), rec.Entity, rec.EntityID,
		jsonbArg(rec.OldValues), jsonbArg(rec.NewValues), jsonbArg(rec.Metadata), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// ListByUser はユーザー自身の監査ログを新しい順にlimit件返す。
func (r *PostgresAuditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.AuditRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, table_name, record_id, old_values, new_values, metadata, created_at
		 FROM audit_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	records := []*model.AuditRecord{}
	for rows.Next() {
		rec := &model.AuditRecord{}
		var action string
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &action, &rec.Entity, &rec.EntityID,
			&rec.OldValues, &rec.NewValues, &rec.Metadata, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		rec.Action = model.AuditAction(action)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit logs: %w", err)
	}
	return records, nil
}

// compile-time interface check
var _ AuditRepository = (*PostgresAuditRepo)(nil)
