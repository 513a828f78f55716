// Package security はアプリケーションのセキュリティ機能を提供する。
//
// CommentSanitizer はコメント本文に含まれるHTMLを許可リストで絞り込み、
// 他のユーザーの画面でのXSSを防ぐ。WebhookGuard は監査ログの外部送信先へのSSRFを防ぐ。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// CommentSanitizer はコメント本文のサニタイズ機能のインターフェースを定義する。
type CommentSanitizer interface {
	// Sanitize は許可タグ以外を除去し、前後の空白を取り除いた本文を返す。
	// 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em, a
	// 結果が空文字列になった場合、呼び出し側で空コメントとして扱う。
	Sanitize(content string) string
}

// commentSanitizer はCommentSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなため1インスタンスを共有する。
type commentSanitizer struct {
	policy *bluemonday.Policy
}

// NewCommentSanitizer はコメント用のサニタイザを生成する。
// 画像や埋め込みは許可せず、リンクはhttp/httpsの絶対URLのみ通す。
func NewCommentSanitizer() *commentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &commentSanitizer{policy: p}
}

// Sanitize は許可タグ以外を除去した本文を返す。
func (s *commentSanitizer) Sanitize(content string) string {
	return strings.TrimSpace(s.policy.Sanitize(content))
}

// compile-time interface check
var _ CommentSanitizer = (*commentSanitizer)(nil)
