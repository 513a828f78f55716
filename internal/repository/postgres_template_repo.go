package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/testboard/internal/model"
)

// PostgresTemplateRepo はPostgreSQLを使用したテンプレートリポジトリ。
// テンプレートはマイグレーションで投入され、アプリケーションからは参照のみ。
type PostgresTemplateRepo struct {
	db *sql.DB
}

// NewPostgresTemplateRepo はPostgresTemplateRepoを生成する。
func NewPostgresTemplateRepo(db *sql.DB) *PostgresTemplateRepo {
	return &PostgresTemplateRepo{db: db}
}

const templateSelect = `
	SELECT id, name, description, application, module, test_type, sample_test_cases
	FROM test_case_templates`

func scanTemplate(row interface{ Scan(...any) error }) (*model.Template, error) {
	t := &model.Template{}
	var samples []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Application, &t.Module, &t.TestType, &samples); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(samples, &t.SampleTestCases); err != nil {
		return nil, fmt.Errorf("invalid sample_test_cases for template %s: %w", t.ID, err)
	}
	return t, nil
}

// List は全テンプレートを表示順で返す。
func (r *PostgresTemplateRepo) List(ctx context.Context) ([]*model.Template, error) {
	rows, err := r.db.QueryContext(ctx, templateSelect+` ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []*model.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return templates, nil
}

// FindByID は指定IDのテンプレートを取得する。見つからない場合はnilを返す。
func (r *PostgresTemplateRepo) FindByID(ctx context.Context, id string) (*model.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, templateSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find template: %w", err)
	}
	return t, nil
}

// compile-time interface check
var _ TemplateRepository = (*PostgresTemplateRepo)(nil)
