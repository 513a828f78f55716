// Package testcase はテストケースの作成・部分更新・ソフトデリート・一覧・エクスポートを提供する。
// すべての操作は所有者単位で行い、他ユーザーのテストケースは存在しないものとして扱う。
package testcase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/testboard/internal/metrics"
	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/repository"
)

// 新規作成時の既定値
const (
	DefaultApplication = "Test Application"
	DefaultModule      = "General"
	DefaultTestType    = "FUNCTIONAL"
)

// EpicResolver はエピックの解決と集計値の再計算を行う。epic.Serviceが実装する。
type EpicResolver interface {
	Resolve(ctx context.Context, ownerID, name string) (*model.Epic, error)
	Recompute(ctx context.Context, epicIDs ...string) error
}

// Auditor は監査ログの記録先。audit.Recorderが実装する。
type Auditor interface {
	Record(entry model.AuditEntry)
}

// Service はテストケースのサービス層。
type Service struct {
	repo    repository.TestCaseRepository
	epics   EpicResolver
	auditor Auditor
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	repo repository.TestCaseRepository,
	epics EpicResolver,
	auditor Auditor,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Service{
		repo:    repo,
		epics:   epics,
		auditor: auditor,
		metrics: mc,
		now:     time.Now,
	}
}

// List は所有者の削除されていないテストケースを作成日時の降順で返す。
func (s *Service) List(ctx context.Context, ownerID string, filter model.TestCaseFilter) ([]*model.TestCase, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.EpicID = strings.TrimSpace(filter.EpicID)

	cases, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("テストケース一覧の取得に失敗しました: %w", err)
	}
	return cases, nil
}

// Get は所有者のテストケースを1件取得する。
func (s *Service) Get(ctx context.Context, id, ownerID string) (*model.TestCase, error) {
	tc, err := s.repo.FindActiveByOwner(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("テストケースの取得に失敗しました: %w", err)
	}
	if tc == nil {
		return nil, model.NewTestCaseNotFoundError(id)
	}
	return tc, nil
}

// FindActiveByScenario は(所有者, テストシナリオID)の有効なテストケースを返す。無ければnil。
func (s *Service) FindActiveByScenario(ctx context.Context, ownerID, scenarioID string) (*model.TestCase, error) {
	tc, err := s.repo.FindActiveByScenario(ctx, ownerID, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("テストケースの検索に失敗しました: %w", err)
	}
	return tc, nil
}

// Create はテストケースを作成する。
// title/description/expectedResultは必須。未指定の項目には既定値を補う。
func (s *Service) Create(ctx context.Context, ownerID string, in model.TestCaseInput) (*model.TestCase, error) {
	if ownerID == "" {
		return nil, model.NewValidationError("userId")
	}
	if missing := in.MissingForCreate(); len(missing) > 0 {
		return nil, model.NewValidationError(missing...)
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, model.NewInvalidStatusError(string(*in.Status))
	}

	epic, err := s.epics.Resolve(ctx, ownerID, in.EpicName())
	if err != nil {
		return nil, err
	}

	now := s.now()
	tc := &model.TestCase{
		ID:             uuid.New().String(),
		UserID:         ownerID,
		EpicID:         epic.ID,
		EpicName:       epic.Name,
		Application:    valueOr(in.Application, DefaultApplication),
		Module:         valueOr(in.Module, DefaultModule),
		TestType:       valueOr(in.TestType, DefaultTestType),
		TestScenarioID: valueOr(in.TestScenarioID, "TS_"+strconv.FormatInt(now.UnixMilli(), 10)),
		TestScenario:   valueOr(in.TestScenario, *in.Title),
		Title:          *in.Title,
		Description:    *in.Description,
		ExpectedResult: *in.ExpectedResult,
		ActualBehavior: valueOr(in.ActualBehavior, ""),
		Notes:          valueOr(in.Notes, ""),
		Evidence:       valueOr(in.Evidence, ""),
		Status:         model.StatusNotRun,
		Lifecycle:      model.Active{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.DetailedSteps != nil && len(*in.DetailedSteps) > 0 {
		tc.DetailedSteps = append([]string(nil), (*in.DetailedSteps)...)
	} else {
		tc.DetailedSteps = []string{tc.Description}
	}
	if in.Status != nil {
		tc.Status = *in.Status
	}

	if err := s.repo.Create(ctx, tc); err != nil {
		return nil, fmt.Errorf("テストケースの作成に失敗しました: %w", err)
	}
	if err := s.epics.Recompute(ctx, tc.EpicID); err != nil {
		return nil, err
	}

	slog.Info("テストケースを作成しました",
		slog.String("user_id", ownerID),
		slog.String("test_case_id", tc.ID),
		slog.String("epic", tc.EpicName),
	)
	s.metrics.RecordTestCaseMutation("create")
	s.auditor.Record(model.AuditEntry{
		UserID:    ownerID,
		Action:    model.AuditCreate,
		Entity:    model.EntityTestCase,
		EntityID:  tc.ID,
		NewValues: Snapshot(tc),
	})
	return tc, nil
}

// Update は指定されたフィールドのみを上書きする。
// エピック名が変わった場合は新旧両方のエピックの集計値を再計算する。
func (s *Service) Update(ctx context.Context, id, ownerID string, in model.TestCaseInput) (*model.TestCase, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, model.NewInvalidStatusError(string(*in.Status))
	}

	tc, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	before := tc.Clone()

	if in.Epic != nil {
		epic, err := s.epics.Resolve(ctx, ownerID, in.EpicName())
		if err != nil {
			return nil, err
		}
		tc.EpicID = epic.ID
		tc.EpicName = epic.Name
	}

	if err := tc.Apply(in, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, tc); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewTestCaseNotFoundError(id)
		}
		return nil, fmt.Errorf("テストケースの更新に失敗しました: %w", err)
	}
	if err := s.epics.Recompute(ctx, before.EpicID, tc.EpicID); err != nil {
		return nil, err
	}

	slog.Info("テストケースを更新しました",
		slog.String("user_id", ownerID),
		slog.String("test_case_id", tc.ID),
	)
	s.metrics.RecordTestCaseMutation("update")
	s.auditor.Record(model.AuditEntry{
		UserID:    ownerID,
		Action:    model.AuditUpdate,
		Entity:    model.EntityTestCase,
		EntityID:  tc.ID,
		OldValues: Snapshot(before),
		NewValues: Snapshot(tc),
	})
	return tc, nil
}

// SoftDelete はテストケースを墓標状態にする。フィールド値と行は保持される。
func (s *Service) SoftDelete(ctx context.Context, id, ownerID string) error {
	tc, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return err
	}
	before := tc.Clone()

	if err := tc.MarkDeleted(ownerID, s.now()); err != nil {
		return err
	}
	tombstone, _ := tc.Tombstone()

	if err := s.repo.SoftDelete(ctx, id, ownerID, tombstone); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewTestCaseNotFoundError(id)
		}
		return fmt.Errorf("テストケースの削除に失敗しました: %w", err)
	}
	if err := s.epics.Recompute(ctx, tc.EpicID); err != nil {
		return err
	}

	slog.Info("テストケースを削除しました",
		slog.String("user_id", ownerID),
		slog.String("test_case_id", id),
	)
	s.metrics.RecordTestCaseMutation("delete")
	s.auditor.Record(model.AuditEntry{
		UserID:    ownerID,
		Action:    model.AuditDelete,
		Entity:    model.EntityTestCase,
		EntityID:  id,
		OldValues: Snapshot(before),
	})
	return nil
}

// Export は一覧と同じ条件でエクスポート行を返す。削除済みは含まれない。
// ID列はテストシナリオIDで、作成日はUTCの日付。
func (s *Service) Export(ctx context.Context, ownerID string, filter model.TestCaseFilter) ([]model.ExportRow, error) {
	cases, err := s.List(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]model.ExportRow, 0, len(cases))
	for _, tc := range cases {
		rows = append(rows, model.ExportRow{
			Epic:           tc.EpicName,
			ID:             tc.TestScenarioID,
			Description:    tc.Description,
			ExpectedResult: tc.ExpectedResult,
			Status:         tc.Status.Label(),
			Notes:          tc.Notes,
			Evidence:       tc.Evidence,
			Application:    tc.Application,
			Module:         tc.Module,
			TestType:       tc.TestType,
			ActualBehavior: tc.ActualBehavior,
			CreatedDate:    tc.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	return rows, nil
}

// Snapshot は監査ログに保存するテストケースのスナップショットを返す。
func Snapshot(tc *model.TestCase) map[string]any {
	return map[string]any{
		"epicId":         tc.EpicID,
		"epic":           tc.EpicName,
		"application":    tc.Application,
		"module":         tc.Module,
		"testType":       tc.TestType,
		"testScenarioId": tc.TestScenarioID,
		"testScenario":   tc.TestScenario,
		"title":          tc.Title,
		"description":    tc.Description,
		"detailedSteps":  tc.DetailedSteps,
		"expectedResult": tc.ExpectedResult,
		"actualBehavior": tc.ActualBehavior,
		"status":         tc.Status,
		"notes":          tc.Notes,
		"evidence":       tc.Evidence,
		"isDeleted":      tc.IsDeleted(),
	}
}

// valueOr は指定され空白でない値を、それ以外は既定値を返す。
func valueOr(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return *v
}
