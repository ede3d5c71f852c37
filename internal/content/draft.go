package content

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Draft はフォームの入力内容を表す。
// Bodyは種別ごとに本文（post, blog）、説明（project）、コード（snippet）として扱う。
type Draft struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	Category     string `json:"category"`
	Tags         string `json:"tags"`
	Excerpt      string `json:"excerpt"`
	Language     string `json:"language"`
	Description  string `json:"description"`
	Technologies string `json:"technologies"`
	GithubLink   string `json:"githubLink"`
	LiveDemo     string `json:"liveDemo"`
	Visibility   string `json:"visibility"`
	Image        []byte `json:"-"`
}

// HasImage は画像が添付されているかを返す。
func (d Draft) HasImage() bool {
	return len(d.Image) > 0
}

// wordsPerMinute は読了時間の算出に使う1分あたりの語数。
const wordsPerMinute = 200

// excerptLength は抜粋を自動生成する際の最大文字数。
const excerptLength = 160

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	slugInvalid   = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify はタイトルからURL用のスラッグを生成する。
// 小文字化し、空白の連続を"-"に置換し、[a-z0-9-]以外の文字を除去する。
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = whitespaceRun.ReplaceAllString(s, "-")
	return slugInvalid.ReplaceAllString(s, "")
}

// ReadingTime はテキストの語数から "N min read" 形式の読了時間を返す。
func ReadingTime(text string) string {
	words := len(strings.Fields(text))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return strconv.Itoa(minutes) + " min read"
}

// SplitList はカンマ区切りの文字列を分割し、前後の空白を除去する。空要素は含めない。
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// excerptOf はプレーンテキストの先頭から抜粋を生成する。
func excerptOf(plain string) string {
	if utf8.RuneCountInString(plain) <= excerptLength {
		return plain
	}
	runes := []rune(plain)
	return strings.TrimSpace(string(runes[:excerptLength])) + "..."
}
