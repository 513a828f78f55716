// Package audit は監査ログの非同期記録を提供する。
// 呼び出し元はRecordでキューに積むだけで、ブロックもエラーも受け取らない。
// 永続化と外部送信はワーカーgoroutineがSinkごとに行う。
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/testboard/internal/metrics"
	"github.com/hitoshi/testboard/internal/model"
)

// queueSink はキュー満杯・停止後の破棄を記録する際のsinkラベル。
const queueSink = "queue"

// deliveryTimeout はSink 1件あたりの書き込みタイムアウト。
const deliveryTimeout = 10 * time.Second

// Sink は監査ログの出力先。
type Sink interface {
	// Name はメトリクスとログに使う出力先名を返す。
	Name() string
	// Write は監査ログ1件を書き込む。
	Write(ctx context.Context, rec *model.AuditRecord) error
}

// Recorder は有界キューとワーカープールで監査ログを非同期に配送する。
type Recorder struct {
	sinks   []Sink
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	workers int

	queue  chan *model.AuditRecord
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	now func() time.Time
}

// NewRecorder はRecorderを生成する。
// queueSizeが0以下の場合は1024、workersが0以下の場合は1を使用する。
func NewRecorder(
	sinks []Sink,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
	queueSize int,
	workers int,
) *Recorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Recorder{
		sinks:   sinks,
		metrics: mc,
		logger:  logger,
		workers: workers,
		queue:   make(chan *model.AuditRecord, queueSize),
		now:     time.Now,
	}
}

// Record は監査ログをキューに積む。キューが満杯または停止済みの場合は破棄する。
// 呼び出し元をブロックしない。
func (r *Recorder) Record(entry model.AuditEntry) {
	rec, err := r.toRecord(entry)
	if err != nil {
		r.logger.Warn("監査ログのシリアライズに失敗しました",
			slog.String("action", string(entry.Action)),
			slog.String("entity", entry.Entity),
			slog.String("entity_id", entry.EntityID),
			slog.String("error", err.Error()),
		)
		r.metrics.RecordAuditEvent(queueSink, metrics.AuditDropped)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(rec, "recorder closed")
		return
	}

	select {
	case r.queue <- rec:
	default:
		r.drop(rec, "queue full")
	}
}

// Start はワーカーgoroutineを起動する。
// ワーカーはCloseでキューが閉じられ、残りを配送し終えるまで動作する。
func (r *Recorder) Start(ctx context.Context) {
	r.logger.Info("監査ログワーカーを開始しました",
		slog.Int("workers", r.workers),
		slog.Int("queue_size", cap(r.queue)),
		slog.Int("sinks", len(r.sinks)),
	)

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for rec := range r.queue {
				r.deliver(ctx, rec)
			}
		}()
	}
}

// Close は新規の受け付けを止め、キューに残った監査ログを配送し終えるまで待つ。
// ctxの期限までに終わらない場合はエラーを返す。2回目以降の呼び出しは何もしない。
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("監査ログワーカーを停止しました")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit drain interrupted: %w", ctx.Err())
	}
}

// deliver は全Sinkに書き込む。Sinkのエラーはログとメトリクスに記録するのみ。
// シャットダウン中もキューの残りを配送するため、親コンテキストのキャンセルは引き継がない。
func (r *Recorder) deliver(ctx context.Context, rec *model.AuditRecord) {
	for _, sink := range r.sinks {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
		err := sink.Write(sctx, rec)
		cancel()

		if err != nil {
			r.logger.Error("監査ログの書き込みに失敗しました",
				slog.String("sink", sink.Name()),
				slog.String("audit_id", rec.ID),
				slog.String("action", string(rec.Action)),
				slog.String("error", err.Error()),
			)
			r.metrics.RecordAuditEvent(sink.Name(), metrics.AuditFailed)
			continue
		}
		r.metrics.RecordAuditEvent(sink.Name(), metrics.AuditWritten)
	}
}

func (r *Recorder) drop(rec *model.AuditRecord, reason string) {
	r.logger.Warn("監査ログを破棄しました",
		slog.String("reason", reason),
		slog.String("audit_id", rec.ID),
		slog.String("action", string(rec.Action)),
		slog.String("entity", rec.Entity),
		slog.String("entity_id", rec.EntityID),
	)
	r.metrics.RecordAuditEvent(queueSink, metrics.AuditDropped)
}

// toRecord はスナップショットをJSONに変換する。
// 呼び出し元が後からスナップショットを変更しても影響を受けないよう、キュー投入前に行う。
func (r *Recorder) toRecord(entry model.AuditEntry) (*model.AuditRecord, error) {
	if entry.Action == "" || entry.Entity == "" {
		return nil, errors.New("action and entity are required")
	}

	rec := &model.AuditRecord{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Entity:    entry.Entity,
		EntityID:  entry.EntityID,
		CreatedAt: entry.CreatedAt,
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}

	var err error
	if rec.OldValues, err = marshalSnapshot(entry.OldValues); err != nil {
		return nil, fmt.Errorf("marshal old values: %w", err)
	}
	if rec.NewValues, err = marshalSnapshot(entry.NewValues); err != nil {
		return nil, fmt.Errorf("marshal new values: %w", err)
	}
	if len(entry.Metadata) > 0 {
		if rec.Metadata, err = json.Marshal(entry.Metadata); err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}
	return rec, nil
}

func marshalSnapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
