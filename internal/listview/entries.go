package listview

import "github.com/hitoshi/codersmeet/internal/model"

// PostEntry は投稿のEntryを返す。
func PostEntry(p *model.Post) Entry {
	return Entry{
		Title:     p.Title,
		Body:      p.Content,
		Category:  p.Category,
		Tags:      p.Tags,
		CreatedAt: p.CreatedAt,
		Likes:     p.Likes,
		Comments:  p.Comments,
	}
}

// ProjectEntry はプロジェクトのEntryを返す。プロジェクトはカテゴリを持たない。
func ProjectEntry(p *model.Project) Entry {
	return Entry{
		Title:         p.Title,
		Body:          p.Description,
		Uncategorized: true,
		Tags:          p.Tags,
		CreatedAt:     p.CreatedAt,
		Likes:         p.Likes,
		Comments:      p.Comments,
		Stars:         p.Stars,
		Forks:         p.Forks,
		Views:         p.Views,
	}
}

// SnippetEntry はスニペットのEntryを返す。言語はテキスト検索の対象に含める。
func SnippetEntry(s *model.Snippet) Entry {
	return Entry{
		Title:         s.Title,
		Body:          s.Language + "\n" + s.Description + "\n" + s.Code,
		Uncategorized: true,
		Tags:          s.Tags,
		CreatedAt:     s.CreatedAt,
		Likes:         s.Likes,
		Comments:      s.Comments,
	}
}

// BlogEntry はブログ記事のEntryを返す。
func BlogEntry(b *model.Blog) Entry {
	return Entry{
		Title:     b.Title,
		Body:      b.Content,
		Category:  b.Category,
		Tags:      b.Tags,
		CreatedAt: b.PublishedAt,
		Likes:     b.Likes,
		Comments:  b.Comments,
	}
}

// DeveloperEntry はユーザーのEntryを返す。スキルをタグとして扱う。
func DeveloperEntry(u *model.User) Entry {
	return Entry{
		Title:         u.DisplayName,
		Body:          u.Username + "\n" + u.Bio,
		Uncategorized: true,
		Tags:          u.Skills,
		CreatedAt:     u.CreatedAt,
		Followers:     u.Followers,
		Contributions: u.Contributions,
	}
}
