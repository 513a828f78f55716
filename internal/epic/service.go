// Package epic はエピックの解決と集計値の再計算を提供する。
//
// passed/totalは所属する削除されていないテストケースから同期的に再計算する。
// 同じエピックを並行して変更した場合、両方の処理が終わるまで一時的にずれることがある。
package epic

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/testboard/internal/model"
	"github.com/hitoshi/testboard/internal/repository"
)

// DefaultName はエピック名が指定されなかった場合に使うエピック名。
const DefaultName = "General"

// Service はエピックの解決・集計・一覧を行う。
type Service struct {
	repo repository.EpicRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.EpicRepository) *Service {
	return &Service{repo: repo}
}

// Resolve は所有者のエピックを名前で取得し、存在しなければ作成する。
// 空白のみの名前はDefaultNameとして扱う。
func (s *Service) Resolve(ctx context.Context, ownerID, name string) (*model.Epic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	e, err := s.repo.FindOrCreate(ctx, ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("エピックの解決に失敗しました: %w", err)
	}
	return e, nil
}

// Recompute は指定エピックの集計値を再計算する。空文字列と重複は無視する。
func (s *Service) Recompute(ctx context.Context, epicIDs ...string) error {
	seen := make(map[string]struct{}, len(epicIDs))
	for _, id := range epicIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		if err := s.repo.Recompute(ctx, id); err != nil {
			return fmt.Errorf("エピック集計の再計算に失敗しました: %w", err)
		}
	}
	return nil
}

// List は所有者のエピックを名前順で返す。集計値は保存済みの値をそのまま返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Epic, error) {
	epics, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("エピック一覧の取得に失敗しました: %w", err)
	}
	return epics, nil
}
