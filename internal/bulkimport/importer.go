// Package bulkimport はテストシナリオIDをキーにしたテストケースの一括アップサートを提供する。
//
// 各項目は(所有者, テストシナリオID)単位のロックを取得した上で、
// 有効なテストケースがあれば部分更新、無ければ新規作成する。
// 1件の失敗はバッチ全体を中断せず、項目ごとの結果として返す。
package bulkimport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/testboard/internal/metrics"
	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/repository"
)

// errInternal は永続化エラーの詳細を結果に含めないための汎用エラー。
var errInternal = errors.New("internal error")

// TestCaseStore はテストケースの作成・更新を行う。testcase.Serviceが実装する。
type TestCaseStore interface {
	FindActiveByScenario(ctx context.Context, ownerID, scenarioID string) (*model.TestCase, error)
	Create(ctx context.Context, ownerID string, in model.TestCaseInput) (*model.TestCase, error)
	Update(ctx context.Context, id, ownerID string, in model.TestCaseInput) (*model.TestCase, error)
}

// Importer は一括インポートを実行する。
type Importer struct {
	store    TestCaseStore
	locker   repository.ScenarioLocker
	metrics  metrics.MetricsCollector
	maxItems int
}

// NewImporter はImporterを生成する。maxItemsが0以下の場合は件数を制限しない。
func NewImporter(
	store TestCaseStore,
	locker repository.ScenarioLocker,
	mc metrics.MetricsCollector,
	maxItems int,
) *Importer {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Importer{
		store:    store,
		locker:   locker,
		metrics:  mc,
		maxItems: maxItems,
	}
}

// Import は項目を入力順に処理し、集計結果を返す。
// バッチ全体の入力エラー（所有者なし・空・件数超過）のみエラーとして返す。
func (im *Importer) Import(ctx context.Context, ownerID string, items []model.TestCaseInput) (*model.ImportSummary, error) {
	if ownerID == "" {
		return nil, model.NewValidationError("userId")
	}
	if len(items) == 0 {
		return nil, model.NewValidationError("testCases")
	}
	if im.maxItems > 0 && len(items) > im.maxItems {
		return nil, model.NewBatchTooLargeError(im.maxItems)
	}

	start := time.Now()
	summary := &model.ImportSummary{Errors: []string{}}

	for i, item := range items {
		result := im.importOne(ctx, ownerID, i, item)
		summary.Add(result)
		im.metrics.RecordImportItem(string(result.Outcome))
	}

	duration := time.Since(start)
	im.metrics.RecordImportLatency(duration)
	slog.Info("一括インポートが完了しました",
		slog.String("user_id", ownerID),
		slog.Int("items", len(items)),
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("failed", len(summary.Errors)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return summary, nil
}

// importOne は1項目をロック下で作成または更新する。
func (im *Importer) importOne(ctx context.Context, ownerID string, index int, item model.TestCaseInput) model.ImportItemResult {
	scenarioID := item.ScenarioID()
	result := model.ImportItemResult{Index: index, TestScenarioID: scenarioID}

	fail := func(err error) model.ImportItemResult {
		result.Outcome = model.ImportFailed
		result.Err = publicError(err, ownerID, scenarioID)
		return result
	}

	if scenarioID == "" {
		return fail(model.NewValidationError("testScenarioId"))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	unlock, err := im.locker.Lock(ctx, ownerID, scenarioID)
	if err != nil {
		return fail(err)
	}
	defer unlock()

	existing, err := im.store.FindActiveByScenario(ctx, ownerID, scenarioID)
	if err != nil {
		return fail(err)
	}

	if existing != nil {
		tc, err := im.store.Update(ctx, existing.ID, ownerID, item)
		if err != nil {
			return fail(err)
		}
		result.TestCaseID = tc.ID
		result.Outcome = model.ImportUpdated
		return result
	}

	tc, err := im.store.Create(ctx, ownerID, item)
	if err != nil {
		return fail(err)
	}
	result.TestCaseID = tc.ID
	result.Outcome = model.ImportCreated
	return result
}

// publicError は入力起因のエラーはそのまま、それ以外はログに記録して汎用エラーに置き換える。
func publicError(err error, ownerID, scenarioID string) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	slog.Error("一括インポートの項目処理に失敗しました",
		slog.String("user_id", ownerID),
		slog.String("test_scenario_id", scenarioID),
		slog.String("error", err.Error()),
	)
	return errInternal
}
