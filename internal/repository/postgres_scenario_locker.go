package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"time"
)

// PostgresScenarioLocker はPostgreSQLのアドバイザリロックで(所有者, シナリオID)を排他する。
// セッションレベルのロックのため、取得から解放まで専用コネクションを1本占有する。
type PostgresScenarioLocker struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresScenarioLocker はPostgresScenarioLockerを生成する。
func NewPostgresScenarioLocker(db *sql.DB, logger *slog.Logger) *PostgresScenarioLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresScenarioLocker{db: db, logger: logger}
}

// scenarioLockKey はアドバイザリロックのキー文字列を返す。
func scenarioLockKey(ownerID, scenarioID string) string {
	return ownerID + ":" + scenarioID
}

// Lock はロックを取得するまでブロックし、解放関数を返す。
// ctxがキャンセルされた場合は取得を中断してエラーを返す。
func (l *PostgresScenarioLocker) Lock(ctx context.Context, ownerID, scenarioID string) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for scenario lock: %w", err)
	}

	key := scenarioLockKey(ownerID, scenarioID)
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, key); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to lock scenario %s: %w", scenarioID, err)
	}

	unlock := func() {
		// 呼び出し元のctxがキャンセル済みでも確実に解放する
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, key); err != nil {
			l.logger.Warn("failed to release scenario lock",
				slog.String("scenario_id", scenarioID),
				slog.String("error", err.Error()),
			)
			// ロックを保持したままプールに戻さないよう、コネクションごと破棄する
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		conn.Close()
	}
	return unlock, nil
}

// compile-time interface check
var _ ScenarioLocker = (*PostgresScenarioLocker)(nil)
