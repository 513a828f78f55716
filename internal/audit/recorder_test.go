package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/testboard/internal/metrics"
	"github.com/hitoshi/testboard/internal/model"
)

// --- モック ---

type memorySink struct {
	name    string
	mu      sync.Mutex
	records []*model.AuditRecord
	writeFn func(ctx context.Context, rec *model.AuditRecord) error
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Write(ctx context.Context, rec *model.AuditRecord) error {
	if s.writeFn != nil {
		if err := s.writeFn(ctx, rec); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) Records() []*model.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.AuditRecord(nil), s.records...)
}

type auditMetrics struct {
	metrics.Nop
	mu     sync.Mutex
	counts map[string]int
}

func newAuditMetrics() *auditMetrics {
	return &auditMetrics{counts: map[string]int{}}
}

func (m *auditMetrics) RecordAuditEvent(sink, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[sink+"/"+result]++
}

func (m *auditMetrics) Count(sink, result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[sink+"/"+result]
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func entry(action model.AuditAction, id string) model.AuditEntry {
	return model.AuditEntry{
		UserID:   "user-1",
		Action:   action,
		Entity:   model.EntityTestCase,
		EntityID: id,
	}
}

// --- テスト ---

func TestRecorder_DeliversToAllSinks(t *testing.T) {
	store := &memorySink{name: "postgres"}
	hook := &memorySink{name: "webhook"}
	mc := newAuditMetrics()
	r := NewRecorder([]Sink{store, hook}, mc, newTestLogger(&bytes.Buffer{}), 16, 2)
	r.Start(context.Background())

	r.Record(entry(model.AuditCreate, "tc-1"))
	r.Record(entry(model.AuditUpdate, "tc-1"))

	require.NoError(t, r.Close(context.Background()))

	assert.Len(t, store.Records(), 2)
	assert.Len(t, hook.Records(), 2)
	assert.Equal(t, 2, mc.Count("postgres", metrics.AuditWritten))
	assert.Equal(t, 2, mc.Count("webhook", metrics.AuditWritten))
}

func TestRecorder_FillsIDAndTimestamp(t *testing.T) {
	store := &memorySink{name: "postgres"}
	r := NewRecorder([]Sink{store}, nil, newTestLogger(&bytes.Buffer{}), 4, 1)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	r.Start(context.Background())

	r.Record(entry(model.AuditDelete, "tc-9"))
	require.NoError(t, r.Close(context.Background()))

	recs := store.Records()
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].ID)
	assert.Equal(t, fixed, recs[0].CreatedAt)
	assert.Equal(t, model.AuditDelete, recs[0].Action)
	assert.Equal(t, "tc-9", recs[0].EntityID)
}

func TestRecorder_SnapshotsAreSerializedAtRecordTime(t *testing.T) {
	store := &memorySink{name: "postgres"}
	r := NewRecorder([]Sink{store}, nil, newTestLogger(&bytes.Buffer{}), 4, 1)

	snapshot := map[string]string{"title": "before"}
	e := entry(model.AuditUpdate, "tc-2")
	e.OldValues = snapshot
	e.Metadata = map[string]string{"source": "bulk"}
	r.Record(e)

	// キュー投入後の変更は記録に反映されない
	snapshot["title"] = "after"

	r.Start(context.Background())
	require.NoError(t, r.Close(context.Background()))

	recs := store.Records()
	require.Len(t, recs, 1)
	assert.JSONEq(t, `{"title":"before"}`, string(recs[0].OldValues))
	assert.Nil(t, recs[0].NewValues)
	assert.JSONEq(t, `{"source":"bulk"}`, string(recs[0].Metadata))
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	var logs bytes.Buffer
	mc := newAuditMetrics()
	store := &memorySink{name: "postgres"}
	r := NewRecorder([]Sink{store}, mc, newTestLogger(&logs), 1, 1)

	// ワーカー未起動のためキュー容量1で2件目以降は破棄される
	done := make(chan struct{})
	go func() {
		r.Record(entry(model.AuditCreate, "tc-1"))
		r.Record(entry(model.AuditCreate, "tc-2"))
		r.Record(entry(model.AuditCreate, "tc-3"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	assert.Equal(t, 2, mc.Count("queue", metrics.AuditDropped))
	assert.Contains(t, logs.String(), "queue full")

	r.Start(context.Background())
	require.NoError(t, r.Close(context.Background()))
	require.Len(t, store.Records(), 1)
	assert.Equal(t, "tc-1", store.Records()[0].EntityID)
}

func TestRecorder_RecordAfterCloseIsDropped(t *testing.T) {
	mc := newAuditMetrics()
	r := NewRecorder(nil, mc, newTestLogger(&bytes.Buffer{}), 4, 1)
	r.Start(context.Background())
	require.NoError(t, r.Close(context.Background()))

	assert.NotPanics(t, func() { r.Record(entry(model.AuditLogout, "s-1")) })
	assert.Equal(t, 1, mc.Count("queue", metrics.AuditDropped))

	// 2回目のCloseは何もしない
	assert.NoError(t, r.Close(context.Background()))
}

func TestRecorder_SinkErrorIsCountedNotPropagated(t *testing.T) {
	var logs bytes.Buffer
	mc := newAuditMetrics()
	failing := &memorySink{name: "webhook", writeFn: func(context.Context, *model.AuditRecord) error {
		return errors.New("connection refused")
	}}
	store := &memorySink{name: "postgres"}
	r := NewRecorder([]Sink{failing, store}, mc, newTestLogger(&logs), 4, 1)
	r.Start(context.Background())

	r.Record(entry(model.AuditPermissionGrant, "perm-1"))
	require.NoError(t, r.Close(context.Background()))

	assert.Equal(t, 1, mc.Count("webhook", metrics.AuditFailed))
	assert.Equal(t, 1, mc.Count("postgres", metrics.AuditWritten))
	assert.Len(t, store.Records(), 1)
	assert.Contains(t, logs.String(), "connection refused")
}

func TestRecorder_InvalidEntryIsDropped(t *testing.T) {
	mc := newAuditMetrics()
	store := &memorySink{name: "postgres"}
	r := NewRecorder([]Sink{store}, mc, newTestLogger(&bytes.Buffer{}), 4, 1)
	r.Start(context.Background())

	r.Record(model.AuditEntry{UserID: "user-1"})
	bad := entry(model.AuditCreate, "tc-1")
	bad.NewValues = func() {}
	r.Record(bad)

	require.NoError(t, r.Close(context.Background()))
	assert.Empty(t, store.Records())
	assert.Equal(t, 2, mc.Count("queue", metrics.AuditDropped))
}

func TestRecorder_CloseRespectsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	blocking := &memorySink{name: "slow", writeFn: func(context.Context, *model.AuditRecord) error {
		<-release
		return nil
	}}
	r := NewRecorder([]Sink{blocking}, nil, newTestLogger(&bytes.Buffer{}), 4, 1)
	r.Start(context.Background())
	r.Record(entry(model.AuditCreate, "tc-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Close(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestRecorder_DeliveryIgnoresParentCancellation(t *testing.T) {
	store := &memorySink{name: "postgres", writeFn: func(ctx context.Context, _ *model.AuditRecord) error {
		return ctx.Err()
	}}
	mc := newAuditMetrics()
	r := NewRecorder([]Sink{store}, mc, newTestLogger(&bytes.Buffer{}), 4, 1)

	ctx, cancel := context.WithCancel(context.Background())
	r.Record(entry(model.AuditCreate, "tc-1"))
	cancel()
	r.Start(ctx)

	require.NoError(t, r.Close(context.Background()))
	assert.Equal(t, 1, mc.Count("postgres", metrics.AuditWritten))
}
