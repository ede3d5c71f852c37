package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore はCloud Firestoreを使用したStore実装。
// コレクションパスはそのままFirestoreのコレクションパスとして扱う。
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore はプロジェクトIDからFirestoreクライアントを生成してFirestoreStoreを返す。
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("while creating Firestore client: %w", err)
	}
	return NewFirestoreStoreFromClient(client), nil
}

// NewFirestoreStoreFromClient は既存のクライアントからFirestoreStoreを生成する。
func NewFirestoreStoreFromClient(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Get はドキュメントを取得する。存在しない場合はnilを返す。
func (s *FirestoreStore) Get(ctx context.Context, path, id string) (*Document, error) {
	if err := ValidateDocument(path, id); err != nil {
		return nil, err
	}
	snap, err := s.client.Collection(path).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while getting document %s/%s: %w", path, id, err)
	}
	return fromSnapshot(path, snap), nil
}

// List はコレクション内のドキュメントを返す。
// Firestoreはドキュメントの作成順を保持しないため、ドキュメントID順となる。
func (s *FirestoreStore) List(ctx context.Context, path string, filters ...Filter) ([]*Document, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	q := s.client.Collection(path).Query
	for _, f := range filters {
		q = q.Where(f.Field, "==", f.Value)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var docs []*Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while listing documents in %s: %w", path, err)
		}
		docs = append(docs, fromSnapshot(path, snap))
	}
	return docs, nil
}

// Set はドキュメントを作成または置き換える。
func (s *FirestoreStore) Set(ctx context.Context, path, id string, fields map[string]any) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	normalized, err := normalize(fields)
	if err != nil {
		return err
	}
	if _, err := s.client.Collection(path).Doc(id).Set(ctx, normalized); err != nil {
		return fmt.Errorf("while setting document %s/%s: %w", path, id, err)
	}
	return nil
}

// Update はトップレベルのフィールドを更新する。
func (s *FirestoreStore) Update(ctx context.Context, path, id string, patch map[string]any) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	updates, err := toUpdates(patch)
	if err != nil {
		return err
	}
	_, err = s.client.Collection(path).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, path, id)
	}
	if err != nil {
		return fmt.Errorf("while updating document %s/%s: %w", path, id, err)
	}
	return nil
}

// Delete はドキュメントを削除する。
func (s *FirestoreStore) Delete(ctx context.Context, path, id string) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	if _, err := s.client.Collection(path).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("while deleting document %s/%s: %w", path, id, err)
	}
	return nil
}

// RunTransaction はFirestoreのトランザクション内でfnを実行する。
// 競合時はFirestoreクライアントがfnを再実行する。
func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, txn *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{client: s.client, txn: txn})
	})
	if err != nil {
		return fmt.Errorf("while running Firestore transaction: %w", err)
	}
	return nil
}

// Close はFirestoreクライアントを閉じる。
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// firestoreTx は*firestore.Transactionを包むTx実装。
type firestoreTx struct {
	client *firestore.Client
	txn    *firestore.Transaction
}

func (t *firestoreTx) Get(ctx context.Context, path, id string) (*Document, error) {
	if err := ValidateDocument(path, id); err != nil {
		return nil, err
	}
	snap, err := t.txn.Get(t.client.Collection(path).Doc(id))
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while getting document %s/%s in transaction: %w", path, id, err)
	}
	return fromSnapshot(path, snap), nil
}

func (t *firestoreTx) Set(ctx context.Context, path, id string, fields map[string]any) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	normalized, err := normalize(fields)
	if err != nil {
		return err
	}
	return t.txn.Set(t.client.Collection(path).Doc(id), normalized)
}

func (t *firestoreTx) Update(ctx context.Context, path, id string, patch map[string]any) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	updates, err := toUpdates(patch)
	if err != nil {
		return err
	}
	return t.txn.Update(t.client.Collection(path).Doc(id), updates)
}

func (t *firestoreTx) Delete(ctx context.Context, path, id string) error {
	if err := ValidateDocument(path, id); err != nil {
		return err
	}
	return t.txn.Delete(t.client.Collection(path).Doc(id))
}

func fromSnapshot(path string, snap *firestore.DocumentSnapshot) *Document {
	return &Document{
		Path:       path,
		ID:         snap.Ref.ID,
		Fields:     snap.Data(),
		CreateTime: snap.CreateTime,
		UpdateTime: snap.UpdateTime,
	}
}

func toUpdates(patch map[string]any) ([]firestore.Update, error) {
	normalized, err := normalize(patch)
	if err != nil {
		return nil, err
	}
	updates := make([]firestore.Update, 0, len(normalized))
	for k, v := range normalized {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	return updates, nil
}

// compile-time interface check
var _ Store = (*FirestoreStore)(nil)
var _ Tx = (*firestoreTx)(nil)
