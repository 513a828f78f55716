package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/testboard/internal/model"
)

// EpicServiceInterface はエピック一覧の取得インターフェース。
type EpicServiceInterface interface {
	List(ctx context.Context, ownerID string) ([]*model.Epic, error)
}

// EpicHandler はエピックのHTTPハンドラー。
type EpicHandler struct {
	service EpicServiceInterface
}

// NewEpicHandler はEpicHandlerを生成する。
func NewEpicHandler(service EpicServiceInterface) *EpicHandler {
	return &EpicHandler{service: service}
}

// List は呼び出し元のエピックを合格数・総数付きで返す。
// GET /api/epics
func (h *EpicHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	epics, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEpicResponses(epics))
}
