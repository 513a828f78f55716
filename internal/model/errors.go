package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, testcase, comment, permission, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidFilter      = "INVALID_FILTER"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeInvalidRole        = "INVALID_ROLE"
	ErrCodeTestCaseNotFound   = "TEST_CASE_NOT_FOUND"
	ErrCodeCommentNotFound    = "COMMENT_NOT_FOUND"
	ErrCodePermissionNotFound = "PERMISSION_NOT_FOUND"
	ErrCodeTemplateNotFound   = "TEMPLATE_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeBatchTooLarge      = "BATCH_TOO_LARGE"
	ErrCodeTombstoned         = "TEST_CASE_DELETED"
)

// NewValidationError は必須項目の欠落などの入力エラーを生成する。
// fieldsには欠落・不正なフィールド名を渡す。
func NewValidationError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が不正です: %s", strings.Join(fields, ", ")),
		Category: "validation",
		Action:   "必須項目を入力してから再度お試しください。",
	}
}

// NewInvalidFilterError は無効なフィルタエラーを生成する。
func NewInvalidFilterError(filter string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s", filter),
		Category: "validation",
		Action:   "ステータスには all、passed、failed、not-run のいずれかを指定してください。",
	}
}

// NewInvalidStatusError は未知のステータスラベルのエラーを生成する。
func NewInvalidStatusError(label string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", label),
		Category: "validation",
		Action:   "ステータスには Not Run、Passed、Failed のいずれかを指定してください。",
	}
}

// NewInvalidRoleError は未知のロールのエラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効なロールです: %s", role),
		Category: "validation",
		Action:   "ロールには owner、editor、viewer、commentor のいずれかを指定してください。",
	}
}

// NewTestCaseNotFoundError はテストケースが見つからない場合のエラーを生成する。
// 存在しない場合と他ユーザー所有の場合を区別しない。
func NewTestCaseNotFoundError(testCaseID string) *APIError {
	return &APIError{
		Code:     ErrCodeTestCaseNotFound,
		Message:  fmt.Sprintf("テストケースが見つからないか、アクセス権がありません: %s", testCaseID),
		Category: "testcase",
		Action:   "テストケースIDを確認してください。",
	}
}

// NewCommentNotFoundError はコメントが見つからない場合のエラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("コメントが見つかりません: %s", commentID),
		Category: "comment",
		Action:   "コメントIDを確認してください。",
	}
}

// NewPermissionNotFoundError は権限レコードが見つからない場合のエラーを生成する。
func NewPermissionNotFoundError(permissionID string) *APIError {
	return &APIError{
		Code:     ErrCodePermissionNotFound,
		Message:  fmt.Sprintf("権限が見つかりません: %s", permissionID),
		Category: "permission",
		Action:   "権限IDを確認してください。",
	}
}

// NewTemplateNotFoundError はテンプレートが見つからない場合のエラーを生成する。
func NewTemplateNotFoundError(templateID string) *APIError {
	return &APIError{
		Code:     ErrCodeTemplateNotFound,
		Message:  fmt.Sprintf("テンプレートが見つかりません: %s", templateID),
		Category: "validation",
		Action:   "テンプレート一覧から選択してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenError は操作権限がない場合のエラーを生成する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", reason),
		Category: "permission",
		Action:   "ダッシュボードの所有者に権限を確認してください。",
	}
}

// NewBatchTooLargeError は一括インポートの件数上限超過エラーを生成する。
func NewBatchTooLargeError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeBatchTooLarge,
		Message:  fmt.Sprintf("一括インポートの件数が上限（%d件）を超えています。", limit),
		Category: "validation",
		Action:   "分割してから再度インポートしてください。",
	}
}

// NewTombstonedError は削除済みテストケースへの変更を拒否するエラーを生成する。
func NewTombstonedError(testCaseID string) *APIError {
	return &APIError{
		Code:     ErrCodeTombstoned,
		Message:  fmt.Sprintf("削除済みのテストケースは変更できません: %s", testCaseID),
		Category: "testcase",
		Action:   "新しいテストケースとして登録し直してください。",
	}
}
