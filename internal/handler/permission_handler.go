package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/testboard/internal/model"
)

// PermissionServiceInterface は権限ハンドラーが必要とするサービスインターフェース。
type PermissionServiceInterface interface {
	List(ctx context.Context, ownerID string) ([]*model.Permission, error)
	Invite(ctx context.Context, ownerID string, invitations []model.Invitation) ([]*model.Permission, error)
	UpdateRole(ctx context.Context, callerID, id string, role model.Role) (*model.Permission, error)
	Revoke(ctx context.Context, callerID, id string) error
	Respond(ctx context.Context, callerID, id string, accept bool) (*model.Permission, error)
	Capabilities(ctx context.Context, callerID, ownerID string) (model.Capabilities, error)
}

// PermissionHandler はダッシュボード共有権限のHTTPハンドラー。
type PermissionHandler struct {
	service PermissionServiceInterface
}

// NewPermissionHandler はPermissionHandlerを生成する。
func NewPermissionHandler(service PermissionServiceInterface) *PermissionHandler {
	return &PermissionHandler{service: service}
}

type invitationRequest struct {
	Email   string `json:"email"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

type inviteRequest struct {
	Invitations []invitationRequest `json:"invitations"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// List は呼び出し元が付与した権限の一覧を返す。
// GET /api/permissions
func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	perms, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPermissionResponses(perms))
}

// Invite はメールアドレスでユーザーを招待する。招待はpending状態で作成される。
// POST /api/permissions
func (h *PermissionHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Invitations) == 0 {
		handleServiceError(w, model.NewValidationError("invitations"))
		return
	}

	invitations := make([]model.Invitation, len(req.Invitations))
	for i, inv := range req.Invitations {
		invitations[i] = model.Invitation{
			Email:   inv.Email,
			Role:    model.Role(inv.Role),
			Message: inv.Message,
		}
	}

	perms, err := h.service.Invite(r.Context(), userID, invitations)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPermissionResponses(perms))
}

// UpdateRole は権限のロールを変更する。
// PUT /api/permissions/{id}
func (h *PermissionHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.UpdateRole(r.Context(), userID, chi.URLParam(r, "id"), model.Role(req.Role))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPermissionResponse(p))
}

// Revoke は権限を取り消す。
// DELETE /api/permissions/{id}
func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Revoke(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Permission revoked successfully"})
}

// Accept は自分宛ての招待を承諾する。
// POST /api/permissions/{id}/accept
func (h *PermissionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

// Decline は自分宛ての招待を辞退する。
// POST /api/permissions/{id}/decline
func (h *PermissionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *PermissionHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Respond(r.Context(), userID, chi.URLParam(r, "id"), accept)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPermissionResponse(p))
}

// Capabilities は呼び出し元が指定所有者のダッシュボードに対して持つ操作可否を返す。
// ownerを省略した場合は自分自身のダッシュボードとして評価する。
// GET /api/permissions/capabilities?owner=
func (h *PermissionHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	caps, err := h.service.Capabilities(r.Context(), userID, r.URL.Query().Get("owner"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, capabilitiesResponse{
		Role:       string(caps.Role),
		CanView:    caps.CanView,
		CanComment: caps.CanComment,
		CanEdit:    caps.CanEdit,
	})
}
