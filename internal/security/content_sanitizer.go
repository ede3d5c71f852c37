// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer はユーザーが投稿したHTMLを許可リストでサニタイズする。
// 本文のプレーンテキスト抽出もあわせて提供する。
package security

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// ContentSanitizerService はユーザー投稿HTMLのサニタイズ機能のインターフェース。
type ContentSanitizerService interface {
	// Sanitize はHTMLをサニタイズして安全なHTMLを返す。同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
	// PlainText はHTMLからテキストのみを取り出し、空白を1つにまとめて返す。
	PlainText(rawHTML string) string
}

// ContentSanitizer はContentSanitizerServiceの実装。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
//   - 許可タグ: h1-h4, p, br, hr, a, ul, ol, li, blockquote, pre, code, strong, em, img
//   - codeのclass属性: language-* のみ（シンタックスハイライト用）
//   - URL（aのhref, imgのsrc）: httpsスキームのみ
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
func NewContentSanitizer() *ContentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4",
		"p", "br", "hr", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[a-zA-Z0-9+#-]+$`)).OnElements("code")

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemes("https")

	return &ContentSanitizer{policy: p}
}

// Sanitize はHTMLをサニタイズする。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	return strings.TrimSpace(s.policy.Sanitize(rawHTML))
}

// PlainText はx/net/htmlのトークナイザでテキストノードを連結する。
// script, styleの中身は含めない。
func (s *ContentSanitizer) PlainText(rawHTML string) string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF またはパース不能な入力で終了
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if isRawTextTag(string(name)) {
				skip++
			}
			if isBlockTag(string(name)) {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawTextTag(string(name)) && skip > 0 {
				skip--
			}
			if isBlockTag(string(name)) {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(name string) bool {
	return name == "script" || name == "style"
}

func isBlockTag(name string) bool {
	switch name {
	case "p", "br", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "pre", "blockquote", "tr", "hr":
		return true
	}
	return false
}

// compile-time interface check
var _ ContentSanitizerService = (*ContentSanitizer)(nil)
