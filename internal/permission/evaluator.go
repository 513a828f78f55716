// Package permission はダッシュボード共有の権限評価と権限管理を提供する。
package permission

import "github.com/hitoshi/testboard/internal/model"

// DefaultRole は承認済みの権限を持たないユーザーに適用されるロール。
// 明示的な付与が無ければ呼び出し元は自身のダッシュボードの所有者として扱われる。
const DefaultRole = model.RoleOwner

// Evaluate はユーザーのロールと操作可否を決定する。
// grantsのうちuserIDに対する承認済み（accepted）の権限があればそのロールを、
// 無ければDefaultRoleを使う。副作用を持たない。
func Evaluate(userID string, grants []*model.Permission) model.Capabilities {
	role := DefaultRole
	for _, g := range grants {
		if g == nil || g.UserID != userID {
			continue
		}
		if g.Status == model.PermissionAccepted && g.Role.Valid() {
			role = g.Role
			break
		}
	}
	return CapabilitiesFor(role)
}

// hasAcceptedGrant はuserIDに対する承認済みの有効な権限があるかを返す。
func hasAcceptedGrant(userID string, grants []*model.Permission) bool {
	for _, g := range grants {
		if g != nil && g.UserID == userID && g.Status == model.PermissionAccepted && g.Role.Valid() {
			return true
		}
	}
	return false
}

// CapabilitiesFor はロールから操作可否を導出する。未知のロールは何も許可しない。
func CapabilitiesFor(role model.Role) model.Capabilities {
	c := model.Capabilities{Role: role}
	switch role {
	case model.RoleOwner, model.RoleEditor:
		c.CanView, c.CanComment, c.CanEdit = true, true, true
	case model.RoleCommentor:
		c.CanView, c.CanComment = true, true
	case model.RoleViewer:
		c.CanView = true
	}
	return c
}
