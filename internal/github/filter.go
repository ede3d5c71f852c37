package github

import (
	"sort"
	"strings"
)

// ローカルでの並び替えキー
const (
	SortUpdated = "updated"
	SortStars   = "stars"
	SortForks   = "forks"
	SortName    = "name"
)

// FilterRepositories は名前と説明に対する大文字小文字を区別しない検索と並び替えを行う。
// 入力スライスは変更しない。未対応のsortはupdatedとして扱う。
func FilterRepositories(repos []Repository, search, sortKey string) []Repository {
	query := strings.ToLower(strings.TrimSpace(search))

	out := make([]Repository, 0, len(repos))
	for _, r := range repos {
		if query == "" ||
			strings.Contains(strings.ToLower(r.Name), query) ||
			strings.Contains(strings.ToLower(r.Description), query) {
			out = append(out, r)
		}
	}

	var less func(a, b Repository) bool
	switch sortKey {
	case SortStars:
		less = func(a, b Repository) bool { return a.Stars > b.Stars }
	case SortForks:
		less = func(a, b Repository) bool { return a.Forks > b.Forks }
	case SortName:
		less = func(a, b Repository) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	default:
		less = func(a, b Repository) bool { return a.UpdatedAt.After(b.UpdatedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
