// Package comment はテストケースへのコメントを管理する。
// 作成にはテストケース所有者のダッシュボードに対するコメント権限が必要で、
// 編集と削除は作成者本人のみが行える。削除は物理削除。
package comment

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

// CapabilityEvaluator は呼び出し元の操作可否を評価する。permission.Serviceが実装する。
type CapabilityEvaluator interface {
	Capabilities(ctx context.Context, callerID, ownerID string) (model.Capabilities, error)
}

// Sanitizer はコメント本文のサニタイズを行う。security.CommentSanitizerが実装する。
type Sanitizer interface {
	Sanitize(content string) string
}

// Auditor は監査ログの記録先。audit.Recorderが実装する。
type Auditor interface {
	Record(entry model.AuditEntry)
}

// Service はコメントのサービス層。
type Service struct {
	comments  repository.CommentRepository
	testCases repository.TestCaseRepository
	perms     CapabilityEvaluator
	sanitizer Sanitizer
	auditor   Auditor
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	comments repository.CommentRepository,
	testCases repository.TestCaseRepository,
	perms CapabilityEvaluator,
	sanitizer Sanitizer,
	auditor Auditor,
) *Service {
	return &Service{
		comments:  comments,
		testCases: testCases,
		perms:     perms,
		sanitizer: sanitizer,
		auditor:   auditor,
		now:       time.Now,
	}
}

// List はテストケースのコメントを作成日時順で返す。
// 閲覧権限のない呼び出し元には存在しないテストケースとして扱う。
func (s *Service) List(ctx context.Context, callerID, testCaseID string) ([]*model.Comment, error) {
	tc, err := s.findTestCase(ctx, testCaseID)
	if err != nil {
		return nil, err
	}
	caps, err := s.perms.Capabilities(ctx, callerID, tc.UserID)
	if err != nil {
		return nil, err
	}
	if !caps.CanView {
		return nil, model.NewTestCaseNotFoundError(testCaseID)
	}

	comments, err := s.comments.ListByTestCase(ctx, testCaseID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return comments, nil
}

// Create はコメントを作成する。コメント権限が無い場合は403を返す。
func (s *Service) Create(ctx context.Context, callerID, testCaseID, content string) (*model.Comment, error) {
	body, err := s.clean(content)
	if err != nil {
		return nil, err
	}

	tc, err := s.findTestCase(ctx, testCaseID)
	if err != nil {
		return nil, err
	}

	caps, err := s.perms.Capabilities(ctx, callerID, tc.UserID)
	if err != nil {
		return nil, err
	}
	if !caps.CanComment {
		return nil, model.NewForbiddenError("このダッシュボードへのコメント権限がありません")
	}

	now := s.now()
	c := &model.Comment{
		ID:         uuid.New().String(),
		TestCaseID: testCaseID,
		UserID:     callerID,
		Content:    body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewTestCaseNotFoundError(testCaseID)
		}
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}

	slog.Info("コメントを作成しました",
		slog.String("user_id", callerID),
		slog.String("test_case_id", testCaseID),
		slog.String("comment_id", c.ID),
	)
	s.auditor.Record(model.AuditEntry{
		UserID:    callerID,
		Action:    model.AuditCreate,
		Entity:    model.EntityComment,
		EntityID:  c.ID,
		NewValues: snapshot(c),
	})
	return c, nil
}

// Update は本文を変更し、更新日時を進める。作成者以外は403を返す。
func (s *Service) Update(ctx context.Context, callerID, commentID, content string) (*model.Comment, error) {
	body, err := s.clean(content)
	if err != nil {
		return nil, err
	}

	c, err := s.findOwnComment(ctx, callerID, commentID)
	if err != nil {
		return nil, err
	}
	before := snapshot(c)

	now := s.now()
	if err := s.comments.UpdateContent(ctx, commentID, body, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewCommentNotFoundError(commentID)
		}
		return nil, fmt.Errorf("コメントの更新に失敗しました: %w", err)
	}
	c.Content = body
	c.UpdatedAt = now

	s.auditor.Record(model.AuditEntry{
		UserID:    callerID,
		Action:    model.AuditUpdate,
		Entity:    model.EntityComment,
		EntityID:  commentID,
		OldValues: before,
		NewValues: snapshot(c),
	})
	return c, nil
}

// Delete はコメントを物理削除する。作成者以外は403を返す。
func (s *Service) Delete(ctx context.Context, callerID, commentID string) error {
	c, err := s.findOwnComment(ctx, callerID, commentID)
	if err != nil {
		return err
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewCommentNotFoundError(commentID)
		}
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}

	s.auditor.Record(model.AuditEntry{
		UserID:    callerID,
		Action:    model.AuditDelete,
		Entity:    model.EntityComment,
		EntityID:  commentID,
		OldValues: snapshot(c),
	})
	return nil
}

func (s *Service) clean(content string) (string, error) {
	body := s.sanitizer.Sanitize(content)
	if body == "" {
		return "", model.NewValidationError("content")
	}
	return body, nil
}

func (s *Service) findTestCase(ctx context.Context, testCaseID string) (*model.TestCase, error) {
	tc, err := s.testCases.FindActiveByID(ctx, testCaseID)
	if err != nil {
		return nil, fmt.Errorf("テストケースの取得に失敗しました: %w", err)
	}
	if tc == nil {
		return nil, model.NewTestCaseNotFoundError(testCaseID)
	}
	return tc, nil
}

func (s *Service) findOwnComment(ctx context.Context, callerID, commentID string) (*model.Comment, error) {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCommentNotFoundError(commentID)
	}
	if c.UserID != callerID {
		return nil, model.NewForbiddenError("コメントの作成者のみが変更できます")
	}
	return c, nil
}

func snapshot(c *model.Comment) map[string]any {
	return map[string]any{
		"testCaseId": c.TestCaseID,
		"content":    c.Content,
	}
}
