package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/testboard/internal/model"
)

// PostgresEpicRepo はPostgreSQLを使用したエピックリポジトリ。
type PostgresEpicRepo struct {
	db *sql.DB
}

// NewPostgresEpicRepo はPostgresEpicRepoを生成する。
func NewPostgresEpicRepo(db *sql.DB) *PostgresEpicRepo {
	return &PostgresEpicRepo{db: db}
}

// FindOrCreate は(所有者, 名前)のエピックを返し、存在しなければ作成する。
// UNIQUE(user_id, name)制約を利用したINSERT ON CONFLICTで、同時作成時も1件に収束させる。
func (r *PostgresEpicRepo) FindOrCreate(ctx context.Context, ownerID, name string) (*model.Epic, error) {
	now := time.Now().UTC()
	e := &model.Epic{}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO epics (id, user_id, name, description, passed, total, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 0, 0, $5, $5)
		 ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, user_id, name, description, passed, total, created_at, updated_at`,
		uuid.New().String(), ownerID, name, "Epic for "+name, now,
	).Scan(&e.ID, &e.UserID, &e.Name, &e.Description, &e.Passed, &e.Total, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("エピックの取得または作成に失敗しました: %w", err)
	}

	return e, nil
}

// Recompute は所属する有効なテストケースからpassed/totalを再計算して保存する。
// 集計と書き込みを1文で行うため、読み取った値が途中で古くなることはない。
func (r *PostgresEpicRepo) Recompute(ctx context.Context, epicID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE epics SET
		     passed = (SELECT count(*) FROM test_cases
		               WHERE epic_id = $1 AND is_deleted = FALSE AND status = 'PASSED'),
		     total  = (SELECT count(*) FROM test_cases
		               WHERE epic_id = $1 AND is_deleted = FALSE),
		     updated_at = now()
		 WHERE id = $1`,
		epicID,
	)
	if err != nil {
		return fmt.Errorf("エピック集計の更新に失敗しました: %w", err)
	}
	return nil
}

// ListByOwner は所有者のエピックを名前順で返す。
func (r *PostgresEpicRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Epic, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, passed, total, created_at, updated_at
		 FROM epics
		 WHERE user_id = $1
		 ORDER BY name ASC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("エピック一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	epics := []*model.Epic{}
	for rows.Next() {
		e := &model.Epic{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Description, &e.Passed, &e.Total, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("エピックのスキャンに失敗しました: %w", err)
		}
		epics = append(epics, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("エピック一覧の走査に失敗しました: %w", err)
	}

	return epics, nil
}

// compile-time interface check
var _ EpicRepository = (*PostgresEpicRepo)(nil)
