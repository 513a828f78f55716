// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/testboard/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// userIDCarrierKey はロギングミドルウェアが認証結果を受け取るためのキー。
var userIDCarrierKey = contextKey("user_id_carrier")

// userIDCarrier は内側のミドルウェアで確定したユーザーIDを外側へ伝える。
type userIDCarrier struct {
	userID string
}

func withUserIDCarrier(ctx context.Context, c *userIDCarrier) context.Context {
	return context.WithValue(ctx, userIDCarrierKey, c)
}

// get はキャリアに設定されたユーザーIDを返す。未設定の場合はctxから取得する。
func (c *userIDCarrier) get(ctx context.Context) string {
	if c.userID != "" {
		return c.userID
	}
	userID, _ := UserIDFromContext(ctx)
	return userID
}

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// SessionDecoder は署名付きCookie値からセッションIDを取り出す。
// auth.CookieCodecが実装する。
type SessionDecoder interface {
	DecodeSessionID(value string) (string, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みユーザーIDをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(decoder SessionDecoder, sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := SessionIDFromRequest(r, decoder)
			if !ok {
				WriteUnauthorized(w)
				return
			}

			session, err := sessionFinder.FindByID(r.Context(), sessionID)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				WriteUnauthorized(w)
				return
			}
			if session == nil {
				WriteUnauthorized(w)
				return
			}

			if c, ok := r.Context().Value(userIDCarrierKey).(*userIDCarrier); ok {
				c.userID = session.UserID
			}
			ctx := context.WithValue(r.Context(), userIDContextKey, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromRequest はCookieを検証してセッションIDを返す。
// Cookieが無い、または署名が一致しない場合はfalseを返す。
func SessionIDFromRequest(r *http.Request, decoder SessionDecoder) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	sessionID, err := decoder.DecodeSessionID(cookie.Value)
	if err != nil || sessionID == "" {
		slog.Warn("rejected session cookie", slog.String("path", r.URL.Path))
		return "", false
	}
	return sessionID, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
