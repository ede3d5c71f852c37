package security

import (
	"strings"
	"testing"
)

func TestSanitize_AllowedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{
			name:         "見出しが許可される",
			input:        "<h2>導入</h2><h4>補足</h4>",
			wantContains: []string{"<h2>導入</h2>", "<h4>補足</h4>"},
		},
		{
			name:         "段落と改行が許可される",
			input:        "<p>行1<br>行2</p>",
			wantContains: []string{"<p>", "<br", "行1", "行2"},
		},
		{
			name:         "リストが許可される",
			input:        "<ul><li>Go</li></ul><ol><li>Rust</li></ol>",
			wantContains: []string{"<ul><li>Go</li></ul>", "<ol><li>Rust</li></ol>"},
		},
		{
			name:         "コードブロックの言語クラスが残る",
			input:        `<pre><code class="language-go">func main() {}</code></pre>`,
			wantContains: []string{`<code class="language-go">`, "func main() {}"},
		},
		{
			name:         "強調と引用が許可される",
			input:        "<blockquote><strong>太字</strong><em>斜体</em></blockquote>",
			wantContains: []string{"<blockquote>", "<strong>太字</strong>", "<em>斜体</em>"},
		},
		{
			name:         "https画像が許可される",
			input:        `<img src="https://res.cloudinary.com/demo/a.png" alt="demo">`,
			wantContains: []string{`src="https://res.cloudinary.com/demo/a.png"`, `alt="demo"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, want to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

func TestSanitize_RemovesDangerousContent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{
			name:       "scriptタグが除去される",
			input:      `<p>本文</p><script>alert("xss")</script>`,
			wantAbsent: []string{"<script", "alert"},
		},
		{
			name:       "iframeが除去される",
			input:      `<iframe src="https://evil.example.com"></iframe>`,
			wantAbsent: []string{"<iframe"},
		},
		{
			name:       "イベントハンドラ属性が除去される",
			input:      `<p onclick="steal()">クリック</p>`,
			wantAbsent: []string{"onclick", "steal"},
		},
		{
			name:       "javascriptスキームのリンクが除去される",
			input:      `<a href="javascript:alert(1)">リンク</a>`,
			wantAbsent: []string{"javascript:"},
		},
		{
			name:       "http画像は除去される",
			input:      `<img src="http://example.com/a.png">`,
			wantAbsent: []string{"http://example.com/a.png"},
		},
		{
			name:       "言語クラス以外のclassは除去される",
			input:      `<code class="evil">x</code>`,
			wantAbsent: []string{"evil"},
		},
		{
			name:       "許可されていないタグの属性は残らない",
			input:      `<div style="position:fixed">囲み</div>`,
			wantAbsent: []string{"<div", "style"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

func TestSanitize_ExternalLinksOpenInNewTab(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Sanitize(`<a href="https://github.com/golang/go">go</a>`)

	for _, want := range []string{`href="https://github.com/golang/go"`, `target="_blank"`, "noreferrer"} {
		if !strings.Contains(got, want) {
			t.Errorf("Sanitize() = %q, want to contain %q", got, want)
		}
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()
	input := `<h2>Hi</h2><p onclick="x()">a &amp; b</p><a href="https://example.com">l</a>`

	once := sanitizer.Sanitize(input)
	twice := sanitizer.Sanitize(once)
	if once != twice {
		t.Errorf("Sanitize is not idempotent:\n once = %q\ntwice = %q", once, twice)
	}
}

func TestSanitize_PlainTextKeepsText(t *testing.T) {
	sanitizer := NewContentSanitizer()

	if got := sanitizer.Sanitize("  Goのジェネリクス入門  "); got != "Goのジェネリクス入門" {
		t.Errorf("Sanitize() = %q", got)
	}
	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty", got)
	}
}

func TestPlainText(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "タグなし", input: "hello world", want: "hello world"},
		{name: "ブロック要素の境界で空白が入る", input: "<p>one</p><p>two</p>", want: "one two"},
		{name: "scriptの中身は含めない", input: "<p>a</p><script>var x = 1;</script><p>b</p>", want: "a b"},
		{name: "連続する空白をまとめる", input: "<p>  a \n\n b  </p>", want: "a b"},
		{name: "文字参照を展開する", input: "<p>a &amp; b</p>", want: "a & b"},
		{name: "空入力", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
