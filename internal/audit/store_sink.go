package audit

import (
	"context"

	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/repository"
)

// StoreSink は監査ログをデータベースに追記するSink。
type StoreSink struct {
	repo repository.AuditRepository
}

// NewStoreSink はStoreSinkを生成する。
func NewStoreSink(repo repository.AuditRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

// Name はSink名を返す。
func (s *StoreSink) Name() string { return "postgres" }

// Write は監査ログを1件追記する。
func (s *StoreSink) Write(ctx context.Context, rec *model.AuditRecord) error {
	return s.repo.Insert(ctx, rec)
}

var _ Sink = (*StoreSink)(nil)
