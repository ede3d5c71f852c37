package model

import (
	"fmt"
	"time"
)

// Kind はコンテンツ種別を表す。
type Kind string

const (
	KindPost    Kind = "post"
	KindProject Kind = "project"
	KindSnippet Kind = "snippet"
	KindBlog    Kind = "blog"
)

// ParseKind は文字列からKindを解析する。未対応の場合はfalseを返す。
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindPost, KindProject, KindSnippet, KindBlog:
		return Kind(s), true
	default:
		return "", false
	}
}

// 公開範囲
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// デフォルト値
const (
	DefaultPostTitle    = "Untitled Post"
	DefaultPostCategory = "Uncategorized"
	DefaultFormCategory = "Tech"
)

// Categories は投稿カテゴリの一覧。
var Categories = []string{"Tech", "Education", "Entertainment", "Design", "Development", "Career"}

// ProjectTags はプロジェクト一覧で選択可能なタグの一覧。
var ProjectTags = []string{
	"React", "JavaScript", "TypeScript", "Node.js", "Python", "AWS", "DevOps",
	"UI/UX", "Mobile", "Web", "Database", "Machine Learning", "Cloud", "Frontend", "Backend",
}

// CollectionPath はコンテンツ種別ごとの保存先コレクションパスを返す。
// snippetとblogは作成者のサブコレクションに保存される。
func CollectionPath(kind Kind, ownerID string) string {
	switch kind {
	case KindPost:
		return "posts"
	case KindProject:
		return "projects"
	case KindSnippet:
		return fmt.Sprintf("users/%s/snippets", ownerID)
	case KindBlog:
		return fmt.Sprintf("users/%s/blogs", ownerID)
	default:
		return ""
	}
}

// ItemRef はいいね・ブックマーク対象のコンテンツを指す参照。
type ItemRef struct {
	Kind    Kind
	ID      string
	OwnerID string // snippet, blog のみ必要
}

// Path はドキュメントのコレクションパスを返す。
func (r ItemRef) Path() string {
	return CollectionPath(r.Kind, r.OwnerID)
}

// Authorship は作成者情報を表す。
type Authorship struct {
	Author      string `json:"author"`
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
	AuthorPhoto string `json:"authorPhoto"`
}

// AuthorshipOf はユーザーから作成者情報を生成する。
func AuthorshipOf(u *User) Authorship {
	return Authorship{
		Author:      u.ID,
		AuthorName:  u.DisplayName,
		AuthorEmail: u.Email,
		AuthorPhoto: u.PhotoURL,
	}
}

// Engagement はカウンタとメンバーシップ集合を表す。
type Engagement struct {
	Likes        int      `json:"likes"`
	Comments     int      `json:"comments"`
	LikedBy      []string `json:"likedBy"`
	BookmarkedBy []string `json:"bookmarkedBy"`
}

func (e *Engagement) applyDefaults() {
	if e.LikedBy == nil {
		e.LikedBy = []string{}
	}
	if e.BookmarkedBy == nil {
		e.BookmarkedBy = []string{}
	}
	if e.Likes < 0 {
		e.Likes = 0
	}
	if e.Comments < 0 {
		e.Comments = 0
	}
}

// Post はposts/{id}に保存される投稿を表す。
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	ImageURL   string    `json:"imageUrl"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"createdAt"`
	Authorship
	Engagement
}

// ApplyDefaults は欠損フィールドにデフォルト値を設定する。
func (p *Post) ApplyDefaults() {
	if p.Title == "" {
		p.Title = DefaultPostTitle
	}
	if p.Category == "" {
		p.Category = DefaultPostCategory
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Visibility == "" {
		p.Visibility = VisibilityPublic
	}
	p.Engagement.applyDefaults()
}

// Project はprojects/{id}に保存されるプロジェクトを表す。
type Project struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Technologies []string  `json:"technologies"`
	Tags         []string  `json:"tags"`
	GithubLink   string    `json:"githubLink"`
	LiveDemo     string    `json:"liveDemo"`
	ImageURL     string    `json:"imageUrl"`
	Stars        int       `json:"stars"`
	Forks        int       `json:"forks"`
	Views        int       `json:"views"`
	Featured     bool      `json:"featured"`
	CreatedAt    time.Time `json:"createdAt"`
	Authorship
	Engagement
}

// ApplyDefaults は欠損フィールドにデフォルト値を設定する。
// タグが無い場合は技術スタックをタグとして扱う。
func (p *Project) ApplyDefaults() {
	if p.Technologies == nil {
		p.Technologies = []string{}
	}
	if p.Tags == nil {
		p.Tags = append([]string{}, p.Technologies...)
	}
	p.Engagement.applyDefaults()
}

// Snippet はusers/{uid}/snippets/{id}に保存されるコードスニペットを表す。
type Snippet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	Authorship
	Engagement
}

// ApplyDefaults は欠損フィールドにデフォルト値を設定する。
func (s *Snippet) ApplyDefaults() {
	if s.Tags == nil {
		s.Tags = []string{}
	}
	s.Engagement.applyDefaults()
}

// Blog はusers/{uid}/blogs/{id}に保存されるブログ記事を表す。
type Blog struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Excerpt     string    `json:"excerpt"`
	ReadingTime string    `json:"readingTime"`
	ImageURL    string    `json:"imageUrl"`
	PublishedAt time.Time `json:"publishedAt"`
	Authorship
	Engagement
}

// ApplyDefaults は欠損フィールドにデフォルト値を設定する。
func (b *Blog) ApplyDefaults() {
	if b.Tags == nil {
		b.Tags = []string{}
	}
	b.Engagement.applyDefaults()
}
