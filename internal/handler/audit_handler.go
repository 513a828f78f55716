package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/testboard/internal/model"
)

const (
	defaultAuditLogLimit = 100
	maxAuditLogLimit     = 500
)

// AuditLogServiceInterface は監査ログ参照のインターフェース。
type AuditLogServiceInterface interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.AuditRecord, error)
}

// AuditHandler は監査ログ参照のHTTPハンドラー。
type AuditHandler struct {
	service AuditLogServiceInterface
}

// NewAuditHandler はAuditHandlerを生成する。
func NewAuditHandler(service AuditLogServiceInterface) *AuditHandler {
	return &AuditHandler{service: service}
}

// List は呼び出し元自身の監査ログを新しい順に返す。
// GET /api/audit-logs?limit=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, err := parseAuditLogLimit(r.URL.Query().Get("limit"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	records, err := h.service.ListByUser(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAuditLogResponses(records))
}

// parseAuditLogLimit は件数指定を解釈する。未指定は既定値、上限を超える値は上限に丸める。
func parseAuditLogLimit(v string) (int, error) {
	if v == "" {
		return defaultAuditLogLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, model.NewValidationError("limit")
	}
	return min(n, maxAuditLogLimit), nil
}
