package listview

import (
	"sort"
	"strings"
	"time"
)

// Entry は絞り込み・並び替えに使う項目の共通ビュー。
// 欠損フィールドはゼロ値として扱う。
// Uncategorizedの項目（プロジェクト、スニペット、開発者）にはカテゴリの絞り込みを適用しない。
type Entry struct {
	Title         string
	Body          string
	Category      string
	Uncategorized bool
	Tags          []string
	CreatedAt     time.Time
	Likes         int
	Comments      int
	Stars         int
	Forks         int
	Views         int
	Followers     int
	Contributions int
}

// Derive はitemsに以下の順で絞り込みと並び替えを適用した新しいスライスを返す。
//
//  1. テキスト（タイトル・本文・タグの部分一致、大文字小文字を区別しない）
//  2. カテゴリ（"all"、空、またはカテゴリを持たない項目の場合は絞り込まない）
//  3. タグ（選択タグのいずれかを含む項目）
//  4. 期間（nowを基準とするCreatedAt）
//  5. 安定ソート
//
// 入力スライスは変更しない。
func Derive[T any](items []T, entryOf func(T) Entry, state FilterState, now time.Time) []T {
	type row struct {
		item  T
		entry Entry
	}

	rows := make([]row, 0, len(items))
	query := strings.ToLower(state.SearchText)
	since, windowed := windowStart(state.Window, now)

	for _, item := range items {
		e := entryOf(item)
		if query != "" && !matchesText(e, query) {
			continue
		}
		if !matchesCategory(e, state.Category) {
			continue
		}
		if !matchesTags(e, state.Tags) {
			continue
		}
		if windowed && e.CreatedAt.Before(since) {
			continue
		}
		rows = append(rows, row{item: item, entry: e})
	}

	if less := lessFor(state.Sort); less != nil {
		sort.SliceStable(rows, func(i, j int) bool {
			return less(rows[i].entry, rows[j].entry)
		})
	}

	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.item
	}
	return out
}

func matchesText(e Entry, query string) bool {
	if strings.Contains(strings.ToLower(e.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Body), query) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func matchesCategory(e Entry, category string) bool {
	if e.Uncategorized || category == "" || strings.EqualFold(category, CategoryAll) {
		return true
	}
	return e.Category == category
}

func matchesTags(e Entry, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, tag := range e.Tags {
		for _, s := range selected {
			if tag == s {
				return true
			}
		}
	}
	return false
}

// windowStart は期間の開始時刻を返す。絞り込まない場合はfalse。
func windowStart(w Window, now time.Time) (time.Time, bool) {
	switch w {
	case WindowDay:
		return now.Add(-24 * time.Hour), true
	case WindowWeek:
		return now.AddDate(0, 0, -7), true
	case WindowMonth:
		return now.AddDate(0, -1, 0), true
	case WindowYear:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// lessFor は並び順の比較関数を返す。未対応の並び順では元の順序を保つためnilを返す。
func lessFor(key SortKey) func(a, b Entry) bool {
	switch key {
	case SortNewest:
		return func(a, b Entry) bool { return a.CreatedAt.After(b.CreatedAt) }
	case SortOldest:
		return func(a, b Entry) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortMostLiked:
		return func(a, b Entry) bool { return a.Likes > b.Likes }
	case SortMostCommented:
		return func(a, b Entry) bool { return a.Comments > b.Comments }
	case SortStars, SortPopular:
		return func(a, b Entry) bool { return a.Stars > b.Stars }
	case SortForks:
		return func(a, b Entry) bool { return a.Forks > b.Forks }
	case SortViews:
		return func(a, b Entry) bool { return a.Views > b.Views }
	case SortFollowers:
		return func(a, b Entry) bool { return a.Followers > b.Followers }
	case SortContributions:
		return func(a, b Entry) bool { return a.Contributions > b.Contributions }
	default:
		return nil
	}
}
