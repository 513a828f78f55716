package handler

import (
	"context"
	"fmt"

	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/repository"
)

// AuditLogServiceAdapterFromRepo は repository.AuditRepository を AuditLogServiceInterface に適合させるアダプタ。
type AuditLogServiceAdapterFromRepo struct {
	repo repository.AuditRepository
}

// NewAuditLogServiceAdapter は repository.AuditRepository から AuditLogServiceInterface を生成する。
func NewAuditLogServiceAdapter(repo repository.AuditRepository) AuditLogServiceInterface {
	return &AuditLogServiceAdapterFromRepo{repo: repo}
}

// ListByUser はユーザー自身の監査ログを新しい順に返す。
func (a *AuditLogServiceAdapterFromRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.AuditRecord, error) {
	records, err := a.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("監査ログの取得に失敗しました: %w", err)
	}
	if records == nil {
		records = []*model.AuditRecord{}
	}
	return records, nil
}

// --- compile-time interface checks ---

var _ AuditLogServiceInterface = (*AuditLogServiceAdapterFromRepo)(nil)
