package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/repository"
)

// Auditor は監査ログの記録先。audit.Recorderが実装する。
type Auditor interface {
	Record(entry model.AuditEntry)
}

// UserResolver は招待先ユーザーの解決インターフェース。
// 未登録のメールアドレスの場合はユーザーを作成する。
type UserResolver interface {
	FindOrCreate(ctx context.Context, email, name string) (*model.User, error)
}

// Config は権限サービスの設定。
type Config struct {
	// EnforceOwner がtrueの場合、ロール変更と取り消しをダッシュボード所有者のみに制限する。
	// falseの場合は呼び出し元を検査しない。
	EnforceOwner bool
}

// Service はダッシュボード共有権限の管理を行う。
type Service struct {
	repo    repository.PermissionRepository
	users   UserResolver
	auditor Auditor
	config  Config
	now     func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	repo repository.PermissionRepository,
	users UserResolver,
	auditor Auditor,
	config Config,
) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		auditor: auditor,
		config:  config,
		now:     time.Now,
	}
}

// List はダッシュボード所有者が付与した権限の一覧を返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Permission, error) {
	perms, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("権限一覧の取得に失敗しました: %w", err)
	}
	return perms, nil
}

// Invite はメールアドレスとロールの組をまとめて招待する。
// 未登録のユーザーは作成される。既に招待済みのユーザーはロールを更新し、状態をpendingに戻す。
// 入力検証はすべての招待について永続化の前に行う。
func (s *Service) Invite(ctx context.Context, ownerID string, invitations []model.Invitation) ([]*model.Permission, error) {
	if len(invitations) == 0 {
		return nil, model.NewValidationError("invitations")
	}
	for _, inv := range invitations {
		if !inv.Role.Valid() {
			return nil, model.NewInvalidRoleError(string(inv.Role))
		}
	}

	invitees := make([]*model.User, 0, len(invitations))
	for _, inv := range invitations {
		u, err := s.users.FindOrCreate(ctx, inv.Email, "")
		if err != nil {
			return nil, err
		}
		if u.ID == ownerID {
			return nil, model.NewValidationError("email")
		}
		invitees = append(invitees, u)
	}

	result := make([]*model.Permission, 0, len(invitations))
	for i, inv := range invitations {
		p, err := s.repo.Upsert(ctx, &model.Permission{
			ID:        uuid.New().String(),
			OwnerID:   ownerID,
			UserID:    invitees[i].ID,
			Role:      inv.Role,
			Status:    model.PermissionPending,
			InvitedAt: s.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("権限の保存に失敗しました: %w", err)
		}

		slog.Info("ダッシュボードへの招待を作成しました",
			slog.String("owner_id", ownerID),
			slog.String("user_id", p.UserID),
			slog.String("role", string(p.Role)),
		)
		meta := map[string]string{"email": invitees[i].Email}
		if inv.Message != "" {
			meta["message"] = inv.Message
		}
		s.auditor.Record(model.AuditEntry{
			UserID:    ownerID,
			Action:    model.AuditPermissionGrant,
			Entity:    model.EntityPermission,
			EntityID:  p.ID,
			NewValues: snapshot(p),
			Metadata:  meta,
		})
		result = append(result, p)
	}
	return result, nil
}

// UpdateRole は権限のロールを変更する。
func (s *Service) UpdateRole(ctx context.Context, callerID, id string, role model.Role) (*model.Permission, error) {
	if !role.Valid() {
		return nil, model.NewInvalidRoleError(string(role))
	}

	p, err := s.findForMutation(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	before := snapshot(p)

	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewPermissionNotFoundError(id)
		}
		return nil, fmt.Errorf("ロールの更新に失敗しました: %w", err)
	}
	p.Role = role

	s.auditor.Record(model.AuditEntry{
		UserID:    callerID,
		Action:    model.AuditPermissionGrant,
		Entity:    model.EntityPermission,
		EntityID:  id,
		OldValues: before,
		NewValues: snapshot(p),
	})
	return p, nil
}

// Revoke は権限を物理削除する。
func (s *Service) Revoke(ctx context.Context, callerID, id string) error {
	p, err := s.findForMutation(ctx, callerID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewPermissionNotFoundError(id)
		}
		return fmt.Errorf("権限の削除に失敗しました: %w", err)
	}

	slog.Info("権限を取り消しました",
		slog.String("permission_id", id),
		slog.String("owner_id", p.OwnerID),
		slog.String("user_id", p.UserID),
	)
	s.auditor.Record(model.AuditEntry{
		UserID:    callerID,
		Action:    model.AuditPermissionRevoke,
		Entity:    model.EntityPermission,
		EntityID:  id,
		OldValues: snapshot(p),
	})
	return nil
}

// Respond は招待されたユーザー本人が招待を承認または辞退する。
// 本人以外からの操作は存在しない権限として扱う。
func (s *Service) Respond(ctx context.Context, callerID, id string, accept bool) (*model.Permission, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("権限の取得に失敗しました: %w", err)
	}
	if p == nil || p.UserID != callerID {
		return nil, model.NewPermissionNotFoundError(id)
	}
	before := snapshot(p)

	status := model.PermissionDeclined
	var acceptedAt *time.Time
	if accept {
		status = model.PermissionAccepted
		now := s.now()
		acceptedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, id, status, acceptedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewPermissionNotFoundError(id)
		}
		return nil, fmt.Errorf("招待状態の更新に失敗しました: %w", err)
	}
	p.Status = status
	p.AcceptedAt = acceptedAt

	s.auditor.Record(model.AuditEntry{
		UserID:    callerID,
		Action:    model.AuditUpdate,
		Entity:    model.EntityPermission,
		EntityID:  id,
		OldValues: before,
		NewValues: snapshot(p),
	})
	return p, nil
}

// Capabilities は呼び出し元がownerIDのダッシュボードに対して持つ操作可否を返す。
// ownerIDが空または自分自身の場合は所有者として評価する。
// 他人のダッシュボードでは承認済みの権限が無い限り何も許可しない。
func (s *Service) Capabilities(ctx context.Context, callerID, ownerID string) (model.Capabilities, error) {
	if ownerID == "" || ownerID == callerID {
		return CapabilitiesFor(model.RoleOwner), nil
	}
	grants, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return model.Capabilities{}, fmt.Errorf("権限一覧の取得に失敗しました: %w", err)
	}
	if !hasAcceptedGrant(callerID, grants) {
		return model.Capabilities{}, nil
	}
	return Evaluate(callerID, grants), nil
}

// findForMutation は変更対象の権限を取得し、EnforceOwner有効時は所有者であることを検査する。
func (s *Service) findForMutation(ctx context.Context, callerID, id string) (*model.Permission, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("権限の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewPermissionNotFoundError(id)
	}
	if s.config.EnforceOwner && p.OwnerID != callerID {
		return nil, model.NewForbiddenError("ダッシュボードの所有者のみが権限を変更できます")
	}
	return p, nil
}

func snapshot(p *model.Permission) map[string]any {
	return map[string]any{
		"ownerId": p.OwnerID,
		"userId":  p.UserID,
		"role":    p.Role,
		"status":  p.Status,
	}
}
