// Package docstore はコレクションパスで指定するドキュメントストアを提供する。
//
// パスは "posts" や "users/{uid}/following" のようにスラッシュ区切りの
// 奇数個のセグメントで表す。ドキュメントのフィールドはJSON互換の値のみを扱い、
// PostgreSQL(jsonb)、Firestore、インメモリの3つのバックエンドを持つ。
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound はUpdate対象のドキュメントが存在しない場合に返される。
// Getは未検出時にエラーではなくnilを返す。
var ErrNotFound = errors.New("docstore: document not found")

// ErrInvalidPath はコレクションパスまたはIDが不正な場合に返される。
var ErrInvalidPath = errors.New("docstore: invalid collection path")

// Document はストアから取得したドキュメントを表す。
type Document struct {
	Path       string
	ID         string
	Fields     map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// DataTo はフィールドをJSON経由で構造体にデコードする。
// 欠損フィールドはゼロ値のまま残る。
func (d *Document) DataTo(v any) error {
	b, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%s: %w", d.Path, d.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to decode document %s/%s: %w", d.Path, d.ID, err)
	}
	return nil
}

// FieldsOf は構造体をJSON経由でフィールドマップに変換する。
func FieldsOf(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return fields, nil
}

// Filter はフィールドの等価条件を表す。
type Filter struct {
	Field string
	Value any
}

// Where はFilterを生成する。
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Tx はトランザクション内で使用する操作の集合。
// 読み取りはすべて書き込みより前に行うこと（Firestoreの制約）。
type Tx interface {
	// Get はドキュメントを取得する。存在しない場合はnilを返す。
	Get(ctx context.Context, path, id string) (*Document, error)
	// Set はドキュメントを作成または全体を置き換える。
	Set(ctx context.Context, path, id string, fields map[string]any) error
	// Update はトップレベルのフィールドをマージする。存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, path, id string, patch map[string]any) error
	// Delete はドキュメントを削除する。存在しない場合も成功する。
	Delete(ctx context.Context, path, id string) error
}

// Store はドキュメントストアのインターフェース。
type Store interface {
	Tx
	// List はコレクション内のドキュメントを作成順に返す。
	// ページングは行わず、呼び出し時点のスナップショットを一度だけ返す。
	List(ctx context.Context, path string, filters ...Filter) ([]*Document, error)
	// RunTransaction はfnをトランザクション内で実行する。
	// fnがエラーを返した場合は全ての書き込みを破棄する。
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Close は接続を解放する。
	Close() error
}

// ValidatePath はコレクションパスを検証する。
func ValidatePath(path string) error {
	if path == "" {
		return ErrInvalidPath
	}
	segments := strings.Split(path, "/")
	if len(segments)%2 == 0 {
		return fmt.Errorf("%w: %q has an even number of segments", ErrInvalidPath, path)
	}
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return nil
}

// ValidateDocument はコレクションパスとドキュメントIDを検証する。
func ValidateDocument(path, id string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: invalid id %q", ErrInvalidPath, id)
	}
	return nil
}

// normalize は値をJSON往復させ、バックエンド間で型を揃える。
func normalize(fields map[string]any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	return FieldsOf(fields)
}
