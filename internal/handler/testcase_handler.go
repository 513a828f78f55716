package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/testcase"
)

// TestCaseServiceInterface はテストケースハンドラーが必要とするサービスインターフェース。
type TestCaseServiceInterface interface {
	List(ctx context.Context, ownerID string, filter model.TestCaseFilter) ([]*model.TestCase, error)
	Create(ctx context.Context, ownerID string, in model.TestCaseInput) (*model.TestCase, error)
	Update(ctx context.Context, id, ownerID string, in model.TestCaseInput) (*model.TestCase, error)
	SoftDelete(ctx context.Context, id, ownerID string) error
	Export(ctx context.Context, ownerID string, filter model.TestCaseFilter) ([]model.ExportRow, error)
}

// BulkImporter は一括インポートのインターフェース。bulkimport.Importerが実装する。
type BulkImporter interface {
	Import(ctx context.Context, ownerID string, items []model.TestCaseInput) (*model.ImportSummary, error)
}

// TestCaseHandler はテストケース管理のHTTPハンドラー。
type TestCaseHandler struct {
	service  TestCaseServiceInterface
	importer BulkImporter
}

// NewTestCaseHandler はTestCaseHandlerを生成する。
func NewTestCaseHandler(service TestCaseServiceInterface, importer BulkImporter) *TestCaseHandler {
	return &TestCaseHandler{
		service:  service,
		importer: importer,
	}
}

type bulkImportRequest struct {
	TestCases []testCaseRequest `json:"testCases"`
}

// List は呼び出し元のテストケース一覧を返す。
// GET /api/testcases?status=&epic=&search=
func (h *TestCaseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter, err := parseTestCaseFilter(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	cases, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTestCaseResponses(cases))
}

// Create はテストケースを作成する。
// POST /api/testcases
func (h *TestCaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req testCaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tc, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTestCaseResponse(tc))
}

// Update は指定されたフィールドのみを更新する。
// PATCH /api/testcases/{id}（PUTも同じ扱い）
func (h *TestCaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req testCaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tc, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), userID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTestCaseResponse(tc))
}

// Delete はテストケースをソフトデリートする。
// DELETE /api/testcases/{id}
func (h *TestCaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.SoftDelete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Test case deleted successfully"})
}

// Bulk は(所有者, テストシナリオID)をキーに作成または更新する。
// 個別の失敗はバッチ全体を失敗させず、結果に含めて200で返す。
// POST /api/testcases/bulk
func (h *TestCaseHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req bulkImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TestCases == nil {
		handleServiceError(w, model.NewValidationError("testCases"))
		return
	}

	items := make([]model.TestCaseInput, len(req.TestCases))
	for i, tc := range req.TestCases {
		items[i] = tc.toInput()
	}

	summary, err := h.importer.Import(r.Context(), userID, items)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toImportSummaryResponse(summary))
}

// Export は一覧と同じ条件のテストケースをエクスポートする。
// 既定はJSON、format=csvでCSVを返す。
// GET /api/testcases/export
func (h *TestCaseHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter, err := parseTestCaseFilter(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rows, err := h.service.Export(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="testcases.csv"`)
		w.WriteHeader(http.StatusOK)
		if err := testcase.WriteCSV(w, rows); err != nil {
			slog.Error("failed to write csv export", slog.String("error", err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusOK, toExportRowResponses(rows))
}

func parseTestCaseFilter(r *http.Request) (model.TestCaseFilter, error) {
	q := r.URL.Query()
	status, err := model.ParseStatusFilter(q.Get("status"))
	if err != nil {
		return model.TestCaseFilter{}, err
	}
	return model.TestCaseFilter{
		Status: status,
		EpicID: q.Get("epic"),
		Search: q.Get("search"),
	}, nil
}
