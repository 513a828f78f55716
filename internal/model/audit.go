package model

import "time"

// AuditAction は監査ログの操作種別。
type AuditAction string

const (
	AuditCreate           AuditAction = "CREATE"
	AuditUpdate           AuditAction = "UPDATE"
	AuditDelete           AuditAction = "DELETE"
	AuditLogin            AuditAction = "LOGIN"
	AuditLogout           AuditAction = "LOGOUT"
	AuditPermissionGrant  AuditAction = "PERMISSION_GRANT"
	AuditPermissionRevoke AuditAction = "PERMISSION_REVOKE"
)

// 監査対象のエンティティ名
const (
	EntityTestCase   = "TestCase"
	EntityComment    = "Comment"
	EntityPermission = "Permission"
	EntitySession    = "Session"
)

// AuditEntry は追記専用の監査ログ1件を表す。
// OldValues/NewValuesはJSONとして保存される任意のスナップショット。
type AuditEntry struct {
	ID        string
	UserID    string
	Action    AuditAction
	Entity    string
	EntityID  string
	OldValues any
	NewValues any
	Metadata  map[string]string
	CreatedAt time.Time
}

// AuditRecord は保存済みの監査ログ。スナップショットはJSONのまま保持する。
type AuditRecord struct {
	ID        string
	UserID    string
	Action    AuditAction
	Entity    string
	EntityID  string
	OldValues []byte
	NewValues []byte
	Metadata  []byte
	CreatedAt time.Time
}
