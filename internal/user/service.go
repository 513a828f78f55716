// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/repository"
)

// 初期管理者ユーザー。seedコマンドで作成される。
const (
	DefaultAdminID    = "admin-user-001"
	DefaultAdminEmail = "admin@testdashboard.app"
	DefaultAdminName  = "Test Dashboard Admin"
)

// Service はユーザー管理のサービス層。
// ユーザーは作成のみで、変更・削除の経路は持たない。
type Service struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// NormalizeEmail はメールアドレスの前後空白を除去し小文字に揃える。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail はメールアドレスの形式を簡易検証する。
func ValidateEmail(email string) error {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return model.NewValidationError("email")
	}
	return nil
}

// LocalPart はメールアドレスの@より前の部分を返す。
func LocalPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

// FindOrCreate はメールアドレスでユーザーを検索し、存在しなければ作成する。
// nameが空の場合はメールアドレスのローカル部を名前とする。既存ユーザーの名前は変更しない。
func (s *Service) FindOrCreate(ctx context.Context, email, name string) (*model.User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = LocalPart(email)
	}

	u, err := s.userRepo.FindOrCreateByEmail(ctx, &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得または作成に失敗しました: %w", err)
	}
	return u, nil
}

// Get は指定IDのユーザーを取得する。存在しない場合はUSER_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

// EnsureDefaultAdmin は初期管理者ユーザーが存在しなければ作成する。
// 作成した場合はtrueを返す。
func (s *Service) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	existing, err := s.userRepo.FindByEmail(ctx, DefaultAdminEmail)
	if err != nil {
		return false, fmt.Errorf("管理者ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		slog.Info("管理者ユーザーは作成済みです",
			slog.String("user_id", existing.ID),
		)
		return false, nil
	}

	err = s.userRepo.Create(ctx, &model.User{
		ID:        DefaultAdminID,
		Email:     DefaultAdminEmail,
		Name:      DefaultAdminName,
		CreatedAt: s.now(),
	})
	if errors.Is(err, repository.ErrConflict) {
		// 並行実行された別のseedが先に作成した
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("管理者ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("管理者ユーザーを作成しました",
		slog.String("user_id", DefaultAdminID),
		slog.String("email", DefaultAdminEmail),
	)
	return true, nil
}
