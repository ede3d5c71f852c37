// Package content はコンテンツ作成フォーム（post, blog, snippet, project）を提供する。
package content

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/security"
)

// SignInPath は未ログイン時のリダイレクト先。
const SignInPath = "/signin"

// Writer はフォーム送信が使うリモート操作。
type Writer interface {
	WriteDocument(ctx context.Context, path, id string, fields map[string]any) error
	UploadImage(ctx context.Context, data []byte) (string, bool)
}

// Recorder はコンテンツ作成のメトリクスを記録する。
type Recorder interface {
	RecordContentCreated(kind string)
	RecordImageUpload(success bool)
}

// LinkValidator はプロジェクトのリンクURLを検証する。
type LinkValidator interface {
	ValidateURL(rawURL string) error
}

// Result はフォーム送信の結果を表す。
type Result struct {
	Redirect          string // 未ログイン時のリダイレクト先
	Path              string
	ID                string
	ImageURL          string
	ImageUploadFailed bool
}

// Deps はFormの依存をまとめる。
type Deps struct {
	Writer    Writer
	Sanitizer security.ContentSanitizerService
	Links     LinkValidator
	Metrics   Recorder
}

// Form は1種別分のコンテンツ作成フォーム。
// 送信中の二重送信はErrCodeSubmitInProgressで拒否する。
type Form struct {
	kind model.Kind
	deps Deps

	mu         sync.Mutex
	draft      Draft
	submitting bool

	now   func() time.Time
	newID func() string
}

// NewForm はFormを生成する。未対応の種別の場合はエラーを返す。
func NewForm(kind model.Kind, deps Deps) (*Form, error) {
	if _, ok := model.ParseKind(string(kind)); !ok {
		return nil, model.NewUnknownKindError(string(kind))
	}
	return &Form{
		kind:  kind,
		deps:  deps,
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// Kind はフォームのコンテンツ種別を返す。
func (f *Form) Kind() model.Kind {
	return f.kind
}

// Draft は現在の入力内容のコピーを返す。
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// SetDraft は入力内容を置き換える。
func (f *Form) SetDraft(d Draft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = d
}

// Reset は入力内容を空にする。
func (f *Form) Reset() {
	f.SetDraft(Draft{})
}

// Submitting は送信処理中かを返す。
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit は入力内容を検証し、ドキュメントを1件作成する。
// 検証失敗・書き込み失敗の場合は入力内容を保持したままエラーを返す。
// 画像アップロードの失敗は画像なしで作成を続け、ImageUploadFailedで知らせる。
func (f *Form) Submit(ctx context.Context, author *model.User) (*Result, error) {
	return f.submit(ctx, author, nil)
}

// SubmitDraft はdを入力内容として設定し、そのまま送信する。
// 設定と送信中フラグの確定は同じロックの中で行うため、
// 並行した送信が互いの入力内容を上書きすることはない。
// 送信中の場合は入力内容を変更せずErrCodeSubmitInProgressを返す。
func (f *Form) SubmitDraft(ctx context.Context, author *model.User, d Draft) (*Result, error) {
	return f.submit(ctx, author, &d)
}

func (f *Form) submit(ctx context.Context, author *model.User, next *Draft) (*Result, error) {
	if author == nil || author.ID == "" {
		return &Result{Redirect: SignInPath}, nil
	}

	// 1. 送信中フラグを立て、入力内容を確定する
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, model.NewSubmitInProgressError()
	}
	if next != nil {
		f.draft = *next
	}
	f.submitting = true
	draft := f.draft
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	// 2. 種別ごとの検証
	if err := f.validate(draft); err != nil {
		return nil, err
	}

	// 3. 画像アップロード（1回のみ）
	result := &Result{}
	if draft.HasImage() {
		url, ok := f.deps.Writer.UploadImage(ctx, draft.Image)
		result.ImageURL = url
		result.ImageUploadFailed = !ok
		if f.deps.Metrics != nil {
			f.deps.Metrics.RecordImageUpload(ok)
		}
	}

	// 4. 保存するレコードを組み立てる
	path, id, record := f.build(draft, author, result.ImageURL)
	fields, err := docstore.FieldsOf(record)
	if err != nil {
		return nil, model.NewWriteRejectedError(err.Error())
	}

	// 5. ドキュメントを1件書き込む
	if err := f.deps.Writer.WriteDocument(ctx, path, id, fields); err != nil {
		return nil, err
	}

	f.Reset()
	if f.deps.Metrics != nil {
		f.deps.Metrics.RecordContentCreated(string(f.kind))
	}
	slog.Info("content created",
		slog.String("kind", string(f.kind)),
		slog.String("path", path),
		slog.String("id", id),
		slog.String("user_id", author.ID),
	)

	result.Path = path
	result.ID = id
	return result, nil
}

// validate は種別ごとの必須項目を検証する。
func (f *Form) validate(d Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return model.NewValidationError("title")
	}

	switch f.kind {
	case model.KindPost:
		if strings.TrimSpace(d.Body) == "" {
			return model.NewValidationError("content")
		}
		if d.Visibility != "" && d.Visibility != model.VisibilityPublic && d.Visibility != model.VisibilityPrivate {
			return model.NewInvalidInputError("visibility")
		}
	case model.KindBlog:
		if strings.TrimSpace(d.Body) == "" {
			return model.NewValidationError("content")
		}
		if strings.TrimSpace(d.Category) == "" {
			return model.NewValidationError("category")
		}
	case model.KindProject:
		if strings.TrimSpace(d.Body) == "" {
			return model.NewValidationError("description")
		}
		if len(SplitList(d.Technologies)) == 0 {
			return model.NewValidationError("technologies")
		}
		for _, link := range []string{d.GithubLink, d.LiveDemo} {
			if link == "" || f.deps.Links == nil {
				continue
			}
			if err := f.deps.Links.ValidateURL(link); err != nil {
				return model.NewInvalidURLError(err.Error())
			}
		}
	case model.KindSnippet:
		if strings.TrimSpace(d.Body) == "" {
			return model.NewValidationError("code")
		}
	}
	return nil
}

// build は送信内容から保存先とレコードを組み立てる。
func (f *Form) build(d Draft, author *model.User, imageURL string) (path, id string, record any) {
	now := f.now()
	authorship := model.AuthorshipOf(author)
	engagement := model.Engagement{LikedBy: []string{}, BookmarkedBy: []string{}}
	tags := SplitList(d.Tags)
	path = model.CollectionPath(f.kind, author.ID)

	switch f.kind {
	case model.KindPost:
		category := strings.TrimSpace(d.Category)
		if category == "" {
			category = model.DefaultFormCategory
		}
		visibility := d.Visibility
		if visibility == "" {
			visibility = model.VisibilityPublic
		}
		id = postID(now, f.newID())
		return path, id, &model.Post{
			Title:      strings.TrimSpace(d.Title),
			Content:    f.sanitize(d.Body),
			Category:   category,
			Tags:       tags,
			ImageURL:   imageURL,
			Visibility: visibility,
			CreatedAt:  now,
			Authorship: authorship,
			Engagement: engagement,
		}

	case model.KindBlog:
		body := f.sanitize(d.Body)
		plain := f.plainText(body)
		excerpt := strings.TrimSpace(d.Excerpt)
		if excerpt == "" {
			excerpt = excerptOf(plain)
		}
		id = f.newID()
		return path, id, &model.Blog{
			Title:       strings.TrimSpace(d.Title),
			Slug:        Slugify(d.Title),
			Content:     body,
			Category:    strings.TrimSpace(d.Category),
			Tags:        tags,
			Excerpt:     excerpt,
			ReadingTime: ReadingTime(plain),
			ImageURL:    imageURL,
			PublishedAt: now,
			Authorship:  authorship,
			Engagement:  engagement,
		}

	case model.KindProject:
		technologies := SplitList(d.Technologies)
		if len(tags) == 0 {
			tags = append([]string{}, technologies...)
		}
		id = f.newID()
		return path, id, &model.Project{
			Title:        strings.TrimSpace(d.Title),
			Description:  f.sanitize(d.Body),
			Technologies: technologies,
			Tags:         tags,
			GithubLink:   d.GithubLink,
			LiveDemo:     d.LiveDemo,
			ImageURL:     imageURL,
			CreatedAt:    now,
			Authorship:   authorship,
			Engagement:   engagement,
		}

	default: // snippet
		id = f.newID()
		// コードは表示時にエスケープするため、そのまま保存する
		return path, id, &model.Snippet{
			Title:       strings.TrimSpace(d.Title),
			Code:        d.Body,
			Language:    strings.TrimSpace(d.Language),
			Description: f.plainText(d.Description),
			Tags:        tags,
			CreatedAt:   now,
			Authorship:  authorship,
			Engagement:  engagement,
		}
	}
}

// postID は作成時刻のミリ秒に乱数の接尾辞を付けたIDを返す。
// 同じミリ秒に作成された投稿同士でも衝突しない。
func postID(now time.Time, random string) string {
	if len(random) > 8 {
		random = random[:8]
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + random
}

func (f *Form) sanitize(s string) string {
	if f.deps.Sanitizer == nil {
		return s
	}
	return f.deps.Sanitizer.Sanitize(s)
}

func (f *Form) plainText(s string) string {
	if f.deps.Sanitizer == nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return f.deps.Sanitizer.PlainText(s)
}
