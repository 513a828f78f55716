package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/testboard/internal/model"
)

// mockAuditRepository はrepository.AuditRepositoryのモック実装。
type mockAuditRepository struct {
	listByUserFn func(ctx context.Context, userID string, limit int) ([]*model.AuditRecord, error)
}

func (m *mockAuditRepository) Insert(ctx context.Context, rec *model.AuditRecord) error {
	return nil
}

func (m *mockAuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.AuditRecord, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, limit)
	}
	return nil, nil
}

func TestAuditHandler_List_DefaultLimit(t *testing.T) {
	repo := &mockAuditRepository{
		listByUserFn: func(ctx context.Context, userID string, limit int) ([]*model.AuditRecord, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			if limit != defaultAuditLogLimit {
				t.Errorf("limit = %d, want %d", limit, defaultAuditLogLimit)
			}
			return []*model.AuditRecord{{
				ID:        "log-1",
				UserID:    "user-1",
				Action:    model.AuditCreate,
				Entity:    model.EntityTestCase,
				EntityID:  "tc-1",
				NewValues: []byte(`{"title":"Pay"}`),
				CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			}}, nil
		},
	}
	h := NewAuditHandler(NewAuditLogServiceAdapter(repo))

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/audit-logs", nil), "user-1")
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var result []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("result length = %d, want 1", len(result))
	}
	if result[0]["tableName"] != "TestCase" || result[0]["action"] != "CREATE" {
		t.Errorf("entry = %v", result[0])
	}
	newValues, ok := result[0]["newValues"].(map[string]any)
	if !ok || newValues["title"] != "Pay" {
		t.Errorf("newValues = %v, want embedded JSON object", result[0]["newValues"])
	}
	if _, ok := result[0]["oldValues"]; ok {
		t.Error("oldValues should be omitted when empty")
	}
}

func TestAuditHandler_List_EmptyIsArray(t *testing.T) {
	h := NewAuditHandler(NewAuditLogServiceAdapter(&mockAuditRepository{}))

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/audit-logs", nil), "user-1")
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want %q", got, "[]\n")
	}
}

func TestAuditHandler_List_RepositoryError(t *testing.T) {
	repo := &mockAuditRepository{
		listByUserFn: func(ctx context.Context, userID string, limit int) ([]*model.AuditRecord, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewAuditHandler(NewAuditLogServiceAdapter(repo))

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/audit-logs", nil), "user-1")
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestParseAuditLogLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", defaultAuditLogLimit, false},
		{"10", 10, false},
		{"100000", maxAuditLogLimit, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAuditLogLimit(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("limit = %d, want %d", got, tt.want)
			}
		})
	}
}
