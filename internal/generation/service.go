// Package generation はプロンプトとテンプレートからテストケース案を生成する。
// 生成はキーワード一致による定型応答で、結果はそのまま一括インポートに渡せる形式で返す。
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/repository"
)

// Importer は生成結果を取り込む一括インポーター。bulkimport.Importerが実装する。
type Importer interface {
	Import(ctx context.Context, ownerID string, items []model.TestCaseInput) (*model.ImportSummary, error)
}

// Service はテンプレート参照とテストケース生成を行う。
type Service struct {
	templates repository.TemplateRepository
	importer  Importer
}

// NewService はServiceを生成する。
func NewService(templates repository.TemplateRepository, importer Importer) *Service {
	return &Service{templates: templates, importer: importer}
}

// Templates は全テンプレートを表示順で返す。
func (s *Service) Templates(ctx context.Context) ([]*model.Template, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("テンプレート一覧の取得に失敗しました: %w", err)
	}
	return templates, nil
}

// Generate はプロンプトのキーワードとテンプレートIDから生成結果を選ぶ。
// 判定順: login/authentication → password/reset → form/validation → テンプレートのサンプル → 汎用。
func (s *Service) Generate(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, model.NewValidationError("prompt")
	}

	var tmpl *model.Template
	if req.TemplateID != "" {
		t, err := s.templates.FindByID(ctx, req.TemplateID)
		if err != nil {
			return nil, fmt.Errorf("テンプレートの取得に失敗しました: %w", err)
		}
		if t == nil {
			return nil, model.NewTemplateNotFoundError(req.TemplateID)
		}
		tmpl = t
	}

	if b := matchBundle(prompt, req.TemplateID); b != nil {
		return b.result(), nil
	}
	if tmpl != nil {
		return fromTemplate(tmpl, req), nil
	}
	return custom(prompt, req), nil
}

// GenerateAndImport は生成結果を呼び出し元のテストケースとして一括インポートする。
func (s *Service) GenerateAndImport(ctx context.Context, ownerID string, req model.GenerationRequest) (*model.GenerationResult, *model.ImportSummary, error) {
	result, err := s.Generate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.importer.Import(ctx, ownerID, result.TestCases)
	if err != nil {
		return nil, nil, err
	}
	return result, summary, nil
}

func matchBundle(prompt, templateID string) *bundle {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "login") || strings.Contains(p, "authentication") || templateID == "login-template":
		return &loginBundle
	case strings.Contains(p, "password") || strings.Contains(p, "reset") || templateID == "password-reset-template":
		return &passwordBundle
	case strings.Contains(p, "form") || strings.Contains(p, "validation") || templateID == "form-validation-template":
		return &formBundle
	}
	return nil
}

func (b *bundle) result() *model.GenerationResult {
	cases := make([]model.TestCaseInput, 0, len(b.cases))
	for _, c := range b.cases {
		cases = append(cases, c.input())
	}
	return &model.GenerationResult{Narrative: b.narrative, TestCases: cases}
}

// fromTemplate はテンプレートのサンプルテストケースから生成結果を組み立てる。
func fromTemplate(t *model.Template, req model.GenerationRequest) *model.GenerationResult {
	app := firstNonEmpty(req.Application, t.Application)
	mod := firstNonEmpty(req.Module, t.Module)
	prefix := "TS_" + strings.ToUpper(strings.ReplaceAll(strings.TrimSuffix(t.ID, "-template"), "-", "_"))

	cases := make([]model.TestCaseInput, 0, len(t.SampleTestCases))
	for i, sample := range t.SampleTestCases {
		cases = append(cases, generatedCase{
			application:    app,
			module:         mod,
			testType:       t.TestType,
			scenarioID:     fmt.Sprintf("%s_%02d", prefix, i+1),
			scenario:       t.Name,
			epic:           t.Name,
			title:          sample.Title,
			description:    sample.Description,
			steps:          sample.Steps,
			expectedResult: sample.ExpectedResult,
		}.input())
	}
	return &model.GenerationResult{
		Narrative: fmt.Sprintf("I've generated %d test cases from the %q template.", len(cases), t.Name),
		TestCases: cases,
	}
}

// custom は一致するキーワードもテンプレートも無い場合の汎用の生成結果を返す。
func custom(prompt string, req model.GenerationRequest) *model.GenerationResult {
	c := generatedCase{
		application: firstNonEmpty(req.Application, "Test Application"),
		module:      firstNonEmpty(req.Module, "General"),
		testType:    "Functional",
		scenarioID:  "TS_CUSTOM",
		scenario:    "Custom Test Scenario",
		epic:        "general",
		title:       "Custom test case based on your request",
		description: prompt,
		steps: []string{
			"Navigate to the relevant feature",
			"Perform the required action",
			"Verify the expected outcome",
			"Document any issues found",
		},
		expectedResult: "Feature should work as expected based on requirements",
	}
	return &model.GenerationResult{
		Narrative: fmt.Sprintf("I've analyzed your request and generated test cases for %q, "+
			"covering core functionality, edge cases and error handling.", prompt),
		TestCases: []model.TestCaseInput{c.input()},
	}
}

// input は一括インポート用の入力に変換する。ステータスは未実行で固定する。
func (c generatedCase) input() model.TestCaseInput {
	steps := append([]string(nil), c.steps...)
	status := model.StatusNotRun
	return model.TestCaseInput{
		Epic:           ptr(c.epic),
		Application:    ptr(c.application),
		Module:         ptr(c.module),
		TestType:       ptr(c.testType),
		TestScenarioID: ptr(c.scenarioID),
		TestScenario:   ptr(c.scenario),
		Title:          ptr(c.title),
		Description:    ptr(c.description),
		DetailedSteps:  &steps,
		ExpectedResult: ptr(c.expectedResult),
		Status:         &status,
	}
}

func ptr(s string) *string { return &s }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
