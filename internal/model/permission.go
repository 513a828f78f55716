package model

import "time"

// Role はダッシュボードに対するユーザーのロールを表す。
type Role string

const (
	RoleOwner     Role = "owner"
	RoleEditor    Role = "editor"
	RoleViewer    Role = "viewer"
	RoleCommentor Role = "commentor"
)

// Valid は定義済みのロールかどうかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer, RoleCommentor:
		return true
	}
	return false
}

// PermissionStatus は招待の状態を表す。
type PermissionStatus string

const (
	PermissionPending  PermissionStatus = "pending"
	PermissionAccepted PermissionStatus = "accepted"
	PermissionDeclined PermissionStatus = "declined"
)

// Permission はダッシュボード所有者（OwnerID）が他ユーザーに付与したロールを表す。
// (OwnerID, UserID) の組につき最大1件。取り消しは物理削除。
type Permission struct {
	ID         string
	OwnerID    string
	UserID     string
	UserName   string
	UserEmail  string
	Role       Role
	Status     PermissionStatus
	InvitedAt  time.Time
	AcceptedAt *time.Time
}

// Invitation は招待1件分の入力。
type Invitation struct {
	Email   string
	Role    Role
	Message string
}

// Capabilities はロールから導出される操作可否を表す。
type Capabilities struct {
	Role       Role
	CanView    bool
	CanComment bool
	CanEdit    bool
}
