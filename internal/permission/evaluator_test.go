package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hitoshi/testboard/internal/model"
)

func TestEvaluate(t *testing.T) {
	grants := []*model.Permission{
		{UserID: "editor", Role: model.RoleEditor, Status: model.PermissionAccepted},
		{UserID: "viewer", Role: model.RoleViewer, Status: model.PermissionAccepted},
		{UserID: "commentor", Role: model.RoleCommentor, Status: model.PermissionAccepted},
		{UserID: "pending-viewer", Role: model.RoleViewer, Status: model.PermissionPending},
		{UserID: "declined-viewer", Role: model.RoleViewer, Status: model.PermissionDeclined},
	}

	tests := []struct {
		name   string
		userID string
		want   model.Capabilities
	}{
		{"承認済みeditor", "editor", model.Capabilities{Role: model.RoleEditor, CanView: true, CanComment: true, CanEdit: true}},
		{"承認済みviewer", "viewer", model.Capabilities{Role: model.RoleViewer, CanView: true}},
		{"承認済みcommentor", "commentor", model.Capabilities{Role: model.RoleCommentor, CanView: true, CanComment: true}},
		{"保留中は既定ロール", "pending-viewer", model.Capabilities{Role: model.RoleOwner, CanView: true, CanComment: true, CanEdit: true}},
		{"辞退済みは既定ロール", "declined-viewer", model.Capabilities{Role: model.RoleOwner, CanView: true, CanComment: true, CanEdit: true}},
		{"付与なしは既定ロール", "stranger", model.Capabilities{Role: model.RoleOwner, CanView: true, CanComment: true, CanEdit: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.userID, grants))
		})
	}
}

func TestEvaluate_NilAndEmptyGrants(t *testing.T) {
	assert.Equal(t, model.RoleOwner, Evaluate("u", nil).Role)
	assert.Equal(t, model.RoleOwner, Evaluate("u", []*model.Permission{nil}).Role)
}

func TestCapabilitiesFor_UnknownRole(t *testing.T) {
	c := CapabilitiesFor(model.Role("admin"))
	assert.False(t, c.CanView)
	assert.False(t, c.CanComment)
	assert.False(t, c.CanEdit)
}

func TestCapabilitiesFor_Matrix(t *testing.T) {
	for _, role := range []model.Role{model.RoleOwner, model.RoleEditor, model.RoleViewer, model.RoleCommentor} {
		c := CapabilitiesFor(role)
		assert.True(t, c.CanView, "all roles can view: %s", role)
		assert.Equal(t, role == model.RoleOwner || role == model.RoleEditor, c.CanEdit, "canEdit: %s", role)
		assert.Equal(t, role != model.RoleViewer, c.CanComment, "canComment: %s", role)
	}
}
