package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// querier は*sql.DBと*sql.Txに共通するクエリ操作を抽象化するインターフェース。
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore はPostgreSQLのdocumentsテーブル(jsonb)を使用したStore実装。
// テーブルはdatabaseパッケージのマイグレーションで作成する。
type PostgresStore struct {
	db *sql.DB
	pgOps
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, pgOps: pgOps{q: db}}
}

// List はコレクション内のドキュメントを作成順に返す。
// 等価条件はjsonbの包含演算子(@>)で評価する。
func (s *PostgresStore) List(ctx context.Context, path string, filters ...Filter) ([]*Document, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	cond := make(map[string]any, len(filters))
	for _, f := range filters {
		cond[f.Field] = f.Value
	}
	condJSON, err := json.Marshal(cond)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filters: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data, created_at, updated_at
		 FROM documents
		 WHERE collection = $1 AND data @> $2::jsonb
		 ORDER BY seq`,
		path, string(condJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc := &Document{Path: path}
		var data []byte
		if err := rows.Scan(&doc.ID, &data, &doc.CreateTime, &doc.UpdateTime); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal(data, &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode document %s/%s: %w", path, doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// RunTransaction はfnをPostgreSQLのトランザクション内で実行する。
// トランザクション内のGetはSELECT ... FOR UPDATEで行をロックする。
func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, &pgOps{q: sqlTx, forUpdate: true}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close はデータベース接続を閉じる。
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// pgOps はDB直接とトランザクション内で共通のドキュメント操作。
type pgOps struct {
	q         querier
	forUpdate bool
}

// Get はドキュメントを取得する。存在しない場合はnilを返す。
func (o *pgOps) Get(ctx context.Context, path, id string) (*Document, error) {
	if err := ValidateDocument(path, id); err != nil {
		return nil, err
	}

	query := `SELECT data, created_at, updated_at
		 FROM documents
		 WHERE collection = $1 AND id = $2`
	if o.forUpdate {
		query += ` FOR UPDATE`
	}

	doc := &Document{Path: path, ID: id}
	var data []byte
	err := o.q.QueryRowContext(ctx, query, path, id).Scan(&data, &doc.CreateTime, &doc.UpdateTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if err := json.Unmarshal(data, &doc.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", path, id, err)
	}
	return doc, nil
}

// Set はドキュメントを作成または置き換える。
func (o *pgOps) Set(ctx context.Context, path, id string, fields map[string]any) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}

	_, err = o.q.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at)
		 VALUES ($1, $2, $3::jsonb, now(), now())
		 ON CONFLICT (collection, id) DO UPDATE
		 SET data = EXCLUDED.data, updated_at = now()`,
		path, id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

// Update はjsonbの連結演算子(||)でトップレベルのフィールドをマージする。
func (o *pgOps) Update(ctx context.Context, path, id string, patch map[string]any) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	data, err := encodeFields(patch)
	if err != nil {
		return err
	}

	result, err := o.q.ExecContext(ctx,
		`UPDATE documents
		 SET data = data || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		path, id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, path, id)
	}
	return nil
}

// Delete はドキュメントを削除する。
func (o *pgOps) Delete(ctx context.Context, path, id string) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	_, err := o.q.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		path, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func encodeFields(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(b), nil
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
var _ Tx = (*pgOps)(nil)
