package security

import "testing"

// TestTextSanitizer_StripsAllTags は全HTMLタグが除去されることを検証する。
func TestTextSanitizer_StripsAllTags(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "BBQ at the park", "BBQ at the park"},
		{"空文字列", "", ""},
		{"scriptタグ除去", `Hello <script>alert("xss")</script>world`, "Hello world"},
		{"iframeタグ除去", `<iframe src="https://evil.example.com"></iframe>join us`, "join us"},
		{"styleタグ除去", `<style>body{display:none}</style>picnic`, "picnic"},
		{"強調タグも除去", "<strong>important</strong> meetup", "important meetup"},
		{"リンクはテキストのみ残る", `see <a href="https://example.com">here</a>`, "see here"},
		{"imgタグ除去", `party <img src="https://example.com/x.png">`, "party"},
		{"onclickイベント属性ごと除去", `<p onclick="steal()">come</p>`, "come"},
		{"前後の空白を削る", "  trimmed  ", "trimmed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestTextSanitizer_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestTextSanitizer_Idempotent(t *testing.T) {
	s := NewTextSanitizer()

	input := `Hello <script>alert(1)</script><b>world</b>`
	first := s.Sanitize(input)
	second := s.Sanitize(first)

	if first != second {
		t.Errorf("サニタイズが冪等でない: first=%q second=%q", first, second)
	}
}

// TestTextSanitizer_ImplementsInterface は実装がインターフェースを満たすことを検証する。
func TestTextSanitizer_ImplementsInterface(t *testing.T) {
	var _ TextSanitizerService = NewTextSanitizer()
}
