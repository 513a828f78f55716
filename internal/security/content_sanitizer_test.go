package security

import (
	"strings"
	"testing"
)

func TestCommentSanitizer_AllowedTags(t *testing.T) {
	s := NewCommentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{"pタグ", "<p>確認しました</p>", []string{"<p>確認しました</p>"}},
		{"強調", "<strong>重要</strong>と<em>補足</em>", []string{"<strong>重要</strong>", "<em>補足</em>"}},
		{"コード", "<pre><code>npm test</code></pre>", []string{"<pre><code>npm test</code></pre>"}},
		{"リスト", "<ul><li>手順1</li></ul>", []string{"<ul><li>手順1</li></ul>"}},
		{"リンク", `<a href="https://example.com/bug/1">チケット</a>`, []string{`href="https://example.com/bug/1"`, "チケット"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, want to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

func TestCommentSanitizer_RemovesDangerousContent(t *testing.T) {
	s := NewCommentSanitizer()

	tests := []struct {
		name       string
		input      string
		notContain []string
	}{
		{"script", `OK<script>alert(1)</script>`, []string{"<script", "alert(1)"}},
		{"iframe", `<iframe src="https://evil.example"></iframe>本文`, []string{"<iframe"}},
		{"img", `<img src="https://example.com/x.png" onerror="alert(1)">`, []string{"<img", "onerror"}},
		{"イベント属性", `<p onclick="steal()">クリック</p>`, []string{"onclick"}},
		{"javascriptスキーム", `<a href="javascript:alert(1)">x</a>`, []string{"javascript:"}},
		{"相対URL", `<a href="/admin">管理</a>`, []string{`href="/admin"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			for _, bad := range tt.notContain {
				if strings.Contains(got, bad) {
					t.Errorf("Sanitize(%q) = %q, must not contain %q", tt.input, got, bad)
				}
			}
		})
	}
}

func TestCommentSanitizer_LinksOpenInNewTab(t *testing.T) {
	got := NewCommentSanitizer().Sanitize(`<a href="https://example.com">x</a>`)
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("expected target=_blank, got %q", got)
	}
	if !strings.Contains(got, "noreferrer") {
		t.Errorf("expected rel=noreferrer, got %q", got)
	}
}

func TestCommentSanitizer_TrimsAndEmpties(t *testing.T) {
	s := NewCommentSanitizer()

	if got := s.Sanitize("  テスト完了  "); got != "テスト完了" {
		t.Errorf("Sanitize trims = %q, want %q", got, "テスト完了")
	}
	if got := s.Sanitize("<script>only()</script>"); got != "" {
		t.Errorf("script-only comment = %q, want empty", got)
	}
}

func TestCommentSanitizer_Idempotent(t *testing.T) {
	s := NewCommentSanitizer()
	input := `<p>手順<strong>3</strong>で失敗</p><script>x()</script>`

	first := s.Sanitize(input)
	if second := s.Sanitize(first); second != first {
		t.Errorf("not idempotent: %q -> %q", first, second)
	}
}

func TestCommentSanitizerInterface(t *testing.T) {
	var _ CommentSanitizer = NewCommentSanitizer()
}
