package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/testboard/internal/model"
)

// GenerationServiceInterface はテストケース生成ハンドラーが必要とするサービスインターフェース。
type GenerationServiceInterface interface {
	Templates(ctx context.Context) ([]*model.Template, error)
	Generate(ctx context.Context, req model.GenerationRequest) (*model.GenerationResult, error)
	GenerateAndImport(ctx context.Context, ownerID string, req model.GenerationRequest) (*model.GenerationResult, *model.ImportSummary, error)
}

// GenerationHandler はテンプレートとテストケース生成のHTTPハンドラー。
type GenerationHandler struct {
	service GenerationServiceInterface
}

// NewGenerationHandler はGenerationHandlerを生成する。
func NewGenerationHandler(service GenerationServiceInterface) *GenerationHandler {
	return &GenerationHandler{service: service}
}

type generateRequest struct {
	Prompt      string `json:"prompt"`
	Template    string `json:"template"`
	Application string `json:"application"`
	Module      string `json:"module"`
	Import      bool   `json:"import"`
}

// Templates は生成に使えるテンプレート一覧を返す。
// GET /api/templates
func (h *GenerationHandler) Templates(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	templates, err := h.service.Templates(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTemplateResponses(templates))
}

// Generate はプロンプトまたはテンプレートからテストケースを生成する。
// import=trueの場合は生成結果をそのまま一括インポートする。
// POST /api/generate
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	genReq := model.GenerationRequest{
		Prompt:      req.Prompt,
		TemplateID:  req.Template,
		Application: req.Application,
		Module:      req.Module,
	}

	if req.Import {
		res, summary, err := h.service.GenerateAndImport(r.Context(), userID, genReq)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toGenerationResponse(res, summary))
		return
	}

	res, err := h.service.Generate(r.Context(), genReq)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGenerationResponse(res, nil))
}
