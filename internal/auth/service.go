// Package auth はログイン・ゲストセッション・ログアウトとセッションCookieを提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/repository"
	"github.com/hitoshi/testboard/internal/user"
)

const guestName = "Guest User"

// Auditor は監査ログの記録先。audit.Recorderが実装する。
type Auditor interface {
	Record(entry model.AuditEntry)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// LoginInput はログインの入力。
type LoginInput struct {
	Name  string
	Email string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	auditor     Auditor
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	auditor Auditor,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		auditor:     auditor,
		config:      config,
		now:         time.Now,
	}
}

// Login はメールアドレスでユーザーを特定し、セッションを発行する。
// 未登録の場合はユーザーを作成する。名前が空の場合はメールアドレスのローカル部を使う。
func (s *Service) Login(ctx context.Context, in LoginInput) (*model.Session, *model.User, error) {
	email := user.NormalizeEmail(in.Email)
	if err := user.ValidateEmail(email); err != nil {
		return nil, nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = user.LocalPart(email)
	}

	u, err := s.userRepo.FindOrCreateByEmail(ctx, &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find or create user: %w", err)
	}

	session, err := s.createSession(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("user logged in",
		slog.String("user_id", u.ID),
	)
	s.auditor.Record(model.AuditEntry{
		UserID:   u.ID,
		Action:   model.AuditLogin,
		Entity:   model.EntitySession,
		EntityID: session.ID,
		Metadata: map[string]string{"method": "email"},
	})

	return session, u, nil
}

// Guest はゲストユーザーを新規作成し、セッションを発行する。
func (s *Service) Guest(ctx context.Context) (*model.Session, *model.User, error) {
	suffix, err := randomHex(4)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate guest suffix: %w", err)
	}

	u := &model.User{
		ID:        uuid.New().String(),
		Email:     fmt.Sprintf("guest-%s@example.com", suffix),
		Name:      guestName,
		IsGuest:   true,
		CreatedAt: s.now(),
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, nil, fmt.Errorf("failed to create guest user: %w", err)
	}

	session, err := s.createSession(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("guest session created",
		slog.String("user_id", u.ID),
	)
	s.auditor.Record(model.AuditEntry{
		UserID:   u.ID,
		Action:   model.AuditLogin,
		Entity:   model.EntitySession,
		EntityID: session.ID,
		Metadata: map[string]string{"method": "guest"},
	})

	return session, u, nil
}

// Logout はセッションを破棄する。存在しないセッションの場合も成功として扱う。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if session != nil {
		slog.Info("user logged out", slog.String("user_id", session.UserID))
		s.auditor.Record(model.AuditEntry{
			UserID:   session.UserID,
			Action:   model.AuditLogout,
			Entity:   model.EntitySession,
			EntityID: sessionID,
		})
	}
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	u, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user not found")
	}

	return u, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// randomHex は暗号的に安全なnバイトの乱数を16進文字列で返す。
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
