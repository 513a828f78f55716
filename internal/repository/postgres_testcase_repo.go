package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/testboard/internal/model"
	"github.com/lib/pq"
)

// PostgresTestCaseRepo はPostgreSQLを使用したテストケースリポジトリ。
type PostgresTestCaseRepo struct {
	db *sql.DB
}

// NewPostgresTestCaseRepo はPostgresTestCaseRepoを生成する。
func NewPostgresTestCaseRepo(db *sql.DB) *PostgresTestCaseRepo {
	return &PostgresTestCaseRepo{db: db}
}

const testCaseSelect = `
	SELECT t.id, t.user_id, t.epic_id, e.name, t.application, t.module, t.test_type,
	       t.test_scenario_id, t.test_scenario, t.title, t.description, t.detailed_steps,
	       t.expected_result, t.actual_behavior, t.status, t.notes, t.evidence,
	       t.deleted_at, t.deleted_by, t.created_at, t.updated_at
	FROM test_cases t
	JOIN epics e ON e.id = t.epic_id`

func scanTestCase(row interface{ Scan(...any) error }) (*model.TestCase, error) {
	tc := &model.TestCase{}
	var status string
	var deletedAt sql.NullTime
	var deletedBy sql.NullString

	err := row.Scan(
		&tc.ID, &tc.UserID, &tc.EpicID, &tc.EpicName, &tc.Application, &tc.Module, &tc.TestType,
		&tc.TestScenarioID, &tc.TestScenario, &tc.Title, &tc.Description, pq.Array(&tc.DetailedSteps),
		&tc.ExpectedResult, &tc.ActualBehavior, &status, &tc.Notes, &tc.Evidence,
		&deletedAt, &deletedBy, &tc.CreatedAt, &tc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tc.Status = model.Status(status)
	if deletedAt.Valid {
		tc.Lifecycle = model.Deleted{At: deletedAt.Time, By: nullStringValue(deletedBy)}
	} else {
		tc.Lifecycle = model.Active{}
	}
	if tc.DetailedSteps == nil {
		tc.DetailedSteps = []string{}
	}
	return tc, nil
}

// buildListQuery は一覧取得のSQLと引数を組み立てる。
// 条件はすべてANDで結合し、検索はtitle/description/idの大文字小文字を区別しない部分一致。
func buildListQuery(ownerID string, filter model.TestCaseFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(testCaseSelect)
	b.WriteString(` WHERE t.user_id = $1 AND t.is_deleted = FALSE`)

	args := []any{ownerID}
	argIndex := 2

	if filter.Status != nil {
		fmt.Fprintf(&b, " AND t.status = $%d", argIndex)
		args = append(args, string(*filter.Status))
		argIndex++
	}

	if filter.EpicID != "" {
		fmt.Fprintf(&b, " AND t.epic_id = $%d", argIndex)
		args = append(args, filter.EpicID)
		argIndex++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		fmt.Fprintf(&b,
			" AND (strpos(lower(t.title), lower($%[1]d)) > 0"+
				" OR strpos(lower(t.description), lower($%[1]d)) > 0"+
				" OR strpos(lower(t.id), lower($%[1]d)) > 0)",
			argIndex)
		args = append(args, search)
	}

	b.WriteString(` ORDER BY t.created_at DESC, t.id DESC`)
	return b.String(), args
}

// List は所有者の有効なテストケースを作成日時の降順で返す。
func (r *PostgresTestCaseRepo) List(ctx context.Context, ownerID string, filter model.TestCaseFilter) ([]*model.TestCase, error) {
	query, args := buildListQuery(ownerID, filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("テストケース一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	cases := []*model.TestCase{}
	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return nil, fmt.Errorf("テストケースのスキャンに失敗しました: %w", err)
		}
		cases = append(cases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("テストケース一覧の走査に失敗しました: %w", err)
	}

	return cases, nil
}

func (r *PostgresTestCaseRepo) findOne(ctx context.Context, where string, args ...any) (*model.TestCase, error) {
	tc, err := scanTestCase(r.db.QueryRowContext(ctx, testCaseSelect+` WHERE `+where, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("テストケースの取得に失敗しました: %w", err)
	}
	return tc, nil
}

// FindActiveByID は所有者を問わず有効なテストケースを取得する。見つからない場合はnilを返す。
func (r *PostgresTestCaseRepo) FindActiveByID(ctx context.Context, id string) (*model.TestCase, error) {
	return r.findOne(ctx, `t.id = $1 AND t.is_deleted = FALSE`, id)
}

// FindActiveByOwner は所有者が一致する有効なテストケースを取得する。見つからない場合はnilを返す。
func (r *PostgresTestCaseRepo) FindActiveByOwner(ctx context.Context, id, ownerID string) (*model.TestCase, error) {
	return r.findOne(ctx, `t.id = $1 AND t.user_id = $2 AND t.is_deleted = FALSE`, id, ownerID)
}

// FindActiveByScenario は(所有者, テストシナリオID)で有効なテストケースを取得する。
// 同じシナリオIDが複数ある場合は最も古いものを返す。
func (r *PostgresTestCaseRepo) FindActiveByScenario(ctx context.Context, ownerID, scenarioID string) (*model.TestCase, error) {
	return r.findOne(ctx,
		`t.user_id = $1 AND t.test_scenario_id = $2 AND t.is_deleted = FALSE
		 ORDER BY t.created_at ASC LIMIT 1`,
		ownerID, scenarioID)
}

// Create はテストケースを作成する。
func (r *PostgresTestCaseRepo) Create(ctx context.Context, tc *model.TestCase) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO test_cases (
		     id, user_id, epic_id, application, module, test_type,
		     test_scenario_id, test_scenario, title, description, detailed_steps,
		     expected_result, actual_behavior, status, notes, evidence,
		     is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, FALSE, $17, $18)`,
		tc.ID, tc.UserID, tc.EpicID, tc.Application, tc.Module, tc.TestType,
		tc.TestScenarioID, tc.TestScenario, tc.Title, tc.Description, pq.Array(tc.DetailedSteps),
		tc.ExpectedResult, tc.ActualBehavior, string(tc.Status), tc.Notes, tc.Evidence,
		tc.CreatedAt, tc.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("テストケースの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は有効なテストケースの全フィールドを上書きする。user_idは変更しない。
func (r *PostgresTestCaseRepo) Update(ctx context.Context, tc *model.TestCase) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE test_cases SET
		     epic_id = $3, application = $4, module = $5, test_type = $6,
		     test_scenario_id = $7, test_scenario = $8, title = $9, description = $10,
		     detailed_steps = $11, expected_result = $12, actual_behavior = $13,
		     status = $14, notes = $15, evidence = $16, updated_at = $17
		 WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE`,
		tc.ID, tc.UserID,
		tc.EpicID, tc.Application, tc.Module, tc.TestType,
		tc.TestScenarioID, tc.TestScenario, tc.Title, tc.Description,
		pq.Array(tc.DetailedSteps), tc.ExpectedResult, tc.ActualBehavior,
		string(tc.Status), tc.Notes, tc.Evidence, tc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("テストケースの更新に失敗しました: %w", err)
	}
	return requireAffected(result)
}

// SoftDelete はテストケースを墓標状態にする。行とフィールド値は保持する。
func (r *PostgresTestCaseRepo) SoftDelete(ctx context.Context, id, ownerID string, deleted model.Deleted) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE test_cases SET
		     is_deleted = TRUE, deleted_at = $3, deleted_by = $4, updated_at = $3
		 WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE`,
		id, ownerID, deleted.At, deleted.By,
	)
	if err != nil {
		return fmt.Errorf("テストケースの削除に失敗しました: %w", err)
	}
	return requireAffected(result)
}

// compile-time interface check
var _ TestCaseRepository = (*PostgresTestCaseRepo)(nil)
