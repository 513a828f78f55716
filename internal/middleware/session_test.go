package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/testboard/internal/model"
)

// --- モック定義 ---

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// signedDecoder は "signed:<id>" 形式の値だけを受け付ける。
type signedDecoder struct{}

func (signedDecoder) DecodeSessionID(value string) (string, error) {
	id, ok := strings.CutPrefix(value, "signed:")
	if !ok {
		return "", errors.New("signature mismatch")
	}
	return id, nil
}

func sessionsFor(sessionID, userID string) *mockSessionRepository {
	return &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == sessionID {
				return &model.Session{ID: id, UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}
}

// --- テスト ---

func TestSessionMiddleware_ValidSession_InjectsUserID(t *testing.T) {
	mw := NewSessionMiddleware(signedDecoder{}, sessionsFor("valid-session-id", "user-123"))

	var capturedUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserIDFromContext(r.Context())
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		capturedUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/testcases", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "signed:valid-session-id"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
}

func TestSessionMiddleware_Rejections_Return401(t *testing.T) {
	failing := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, context.DeadlineExceeded
		},
	}

	tests := []struct {
		name   string
		cookie *http.Cookie
		repo   SessionFinder
	}{
		{"no cookie", nil, sessionsFor("s1", "u1")},
		{"empty cookie", &http.Cookie{Name: SessionCookieName, Value: ""}, sessionsFor("s1", "u1")},
		{"unsigned cookie", &http.Cookie{Name: SessionCookieName, Value: "s1"}, sessionsFor("s1", "u1")},
		{"expired session", &http.Cookie{Name: SessionCookieName, Value: "signed:expired"}, sessionsFor("s1", "u1")},
		{"repository error", &http.Cookie{Name: SessionCookieName, Value: "signed:s1"}, failing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionMiddleware(signedDecoder{}, tt.repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/testcases", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if !strings.Contains(w.Body.String(), "UNAUTHORIZED") {
				t.Errorf("body = %q, want unified UNAUTHORIZED error", w.Body.String())
			}
		})
	}
}

func TestSessionIDFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "signed:abc"})

	id, ok := SessionIDFromRequest(req, signedDecoder{})
	if !ok || id != "abc" {
		t.Errorf("SessionIDFromRequest = (%q, %v), want (%q, true)", id, ok, "abc")
	}
}

func TestUserIDFromContext(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for missing user ID in context")
	}

	userID, err := UserIDFromContext(ContextWithUserID(context.Background(), "user-456"))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if userID != "user-456" {
		t.Errorf("userID = %q, want %q", userID, "user-456")
	}
}
