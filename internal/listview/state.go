// Package listview はコンテンツ一覧の絞り込み・並び替えを純粋関数として提供する。
package listview

import (
	"slices"
	"strings"
)

// SortKey は並び順を表す。
type SortKey string

const (
	SortNewest        SortKey = "newest"
	SortOldest        SortKey = "oldest"
	SortMostLiked     SortKey = "mostLiked"
	SortMostCommented SortKey = "mostCommented"
	SortStars         SortKey = "stars"
	SortPopular       SortKey = "popular"
	SortForks         SortKey = "forks"
	SortViews         SortKey = "views"
	SortFollowers     SortKey = "followers"
	SortContributions SortKey = "contributions"
)

// Window は作成日時による期間の絞り込みを表す。
type Window string

const (
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
	WindowAll   Window = "all"
)

// CategoryAll はカテゴリで絞り込まないことを表す。
const CategoryAll = "all"

// FilterState は一覧の絞り込み条件。値として扱い、変更は常に新しい値を返す。
type FilterState struct {
	SearchText string
	Category   string
	Tags       []string
	Sort       SortKey
	Window     Window
}

// DefaultState は初期状態を返す。
func DefaultState() FilterState {
	return FilterState{
		Category: CategoryAll,
		Tags:     []string{},
		Sort:     SortNewest,
		Window:   WindowAll,
	}
}

// Reducer はFilterStateから新しいFilterStateを作る純粋関数。
type Reducer func(FilterState) FilterState

// Apply はreducersを順に適用した新しい状態を返す。元の状態は変更しない。
func (s FilterState) Apply(reducers ...Reducer) FilterState {
	next := s.clone()
	for _, r := range reducers {
		next = r(next).clone()
	}
	return next
}

func (s FilterState) clone() FilterState {
	s.Tags = slices.Clone(s.Tags)
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return s
}

// SetSearch は検索文字列を設定する。
func SetSearch(text string) Reducer {
	return func(s FilterState) FilterState {
		s.SearchText = text
		return s
	}
}

// SetCategory はカテゴリを設定する。空文字列はallとして扱う。
func SetCategory(category string) Reducer {
	return func(s FilterState) FilterState {
		if category == "" {
			category = CategoryAll
		}
		s.Category = category
		return s
	}
}

// ToggleTag はタグの選択を切り替える。
func ToggleTag(tag string) Reducer {
	return func(s FilterState) FilterState {
		if i := slices.Index(s.Tags, tag); i >= 0 {
			s.Tags = slices.Delete(slices.Clone(s.Tags), i, i+1)
			return s
		}
		s.Tags = append(slices.Clone(s.Tags), tag)
		return s
	}
}

// SetTags はタグの選択を置き換える。
func SetTags(tags []string) Reducer {
	return func(s FilterState) FilterState {
		s.Tags = slices.Clone(tags)
		return s
	}
}

// ClearTags はタグの選択を解除する。
func ClearTags() Reducer {
	return SetTags(nil)
}

// SetSort は並び順を設定する。
func SetSort(key SortKey) Reducer {
	return func(s FilterState) FilterState {
		s.Sort = key
		return s
	}
}

// SetWindow は期間を設定する。
func SetWindow(w Window) Reducer {
	return func(s FilterState) FilterState {
		s.Window = w
		return s
	}
}

// ParseSortKey は文字列を並び順に変換する。未対応の値はfalseを返す。
func ParseSortKey(v string) (SortKey, bool) {
	key := SortKey(v)
	switch key {
	case SortNewest, SortOldest, SortMostLiked, SortMostCommented,
		SortStars, SortPopular, SortForks, SortViews,
		SortFollowers, SortContributions:
		return key, true
	}
	return "", false
}

// ParseWindow は文字列を期間に変換する。未対応の値はfalseを返す。
func ParseWindow(v string) (Window, bool) {
	w := Window(strings.ToLower(v))
	switch w {
	case WindowDay, WindowWeek, WindowMonth, WindowYear, WindowAll:
		return w, true
	}
	return "", false
}
