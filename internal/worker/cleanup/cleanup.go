// Package cleanup は期限切れデータの定期削除ジョブを提供する。
// 有効期限を過ぎたセッションを削除し、保持日数が設定されている場合は
// それより古い監査ログも削除する。テストケースは削除対象にしない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expires_at < now()`
	deleteOldAuditLogsQuery    = `DELETE FROM audit_logs WHERE created_at < now() - $1::interval`
)

// Result は1回の実行で削除した件数。
type Result struct {
	Sessions  int64
	AuditLogs int64
}

// CleanupJob は期限切れセッションと古い監査ログの削除ジョブ。
// 削除は冪等で、対象が無い場合もエラーにならない。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger
	// AuditRetentionDays は監査ログの保持日数。0以下の場合は監査ログを削除しない。
	AuditRetentionDays int
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, logger *slog.Logger, auditRetentionDays int) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:                 db,
		logger:             logger,
		AuditRetentionDays: auditRetentionDays,
	}
}

// Run は期限切れセッションを削除し、保持期間を超えた監査ログを削除する。
func (j *CleanupJob) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result

	n, err := j.exec(ctx, "sessions", deleteExpiredSessionsQuery)
	if err != nil {
		return res, err
	}
	res.Sessions = n

	if j.AuditRetentionDays > 0 {
		interval := fmt.Sprintf("%d days", j.AuditRetentionDays)
		n, err := j.exec(ctx, "audit_logs", deleteOldAuditLogsQuery, interval)
		if err != nil {
			return res, err
		}
		res.AuditLogs = n
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", res.Sessions),
		slog.Int64("deleted_audit_logs", res.AuditLogs),
		slog.Int("audit_retention_days", j.AuditRetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res, nil
}

// Start はRunを即時に1回実行し、以降intervalごとに繰り返す。ctxがキャンセルされると戻る。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (j *CleanupJob) exec(ctx context.Context, table, query string, args ...any) (int64, error) {
	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		j.logger.Error("クリーンアップの実行に失敗しました",
			slog.String("table", table),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("%sのクリーンアップに失敗: %w", table, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%sの削除件数の取得に失敗: %w", table, err)
	}
	return n, nil
}
