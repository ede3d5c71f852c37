package toggle

import (
	"context"
	"fmt"
	"sync"

	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/model"
)

// Relation はメンバーシップの種類を表す。
type Relation string

const (
	RelationLike     Relation = "like"
	RelationBookmark Relation = "bookmark"
)

// membersField はメンバーシップを保持するフィールド名を返す。
func (r Relation) membersField() string {
	if r == RelationLike {
		return "likedBy"
	}
	return "bookmarkedBy"
}

// View はクライアントに表示する項目ごとの状態。
type View struct {
	Active  bool     // 操作したユーザーが集合に含まれるか
	Count   int      // いいねはlikesカウンタ、ブックマークは集合の要素数
	Members []string // likedBy または bookmarkedBy
}

// Result はトグル操作の結果。Redirectが空でない場合は遷移のみを行う。
type Result struct {
	Redirect string
	View     View
}

// LocalView は表示側が所有する楽観的な表示状態。
// 画面（サーバーではリクエスト）ごとに生成し、他と共有しない。
type LocalView struct {
	mu    sync.Mutex
	items map[string]View
}

// NewLocalView は空のLocalViewを生成する。
func NewLocalView() *LocalView {
	return &LocalView{items: make(map[string]View)}
}

func viewKey(ref model.ItemRef) string {
	return ref.Path() + "/" + ref.ID
}

// Seed は読み込み済み項目の表示を設定する。
func (l *LocalView) Seed(ref model.ItemRef, v View) {
	v.Members = append([]string{}, v.Members...)
	l.mu.Lock()
	l.items[viewKey(ref)] = v
	l.mu.Unlock()
}

// View は項目の表示を返す。
func (l *LocalView) View(ref model.ItemRef) (View, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.items[viewKey(ref)]
	return v, ok
}

func (l *LocalView) set(ref model.ItemRef, v View) {
	l.mu.Lock()
	l.items[viewKey(ref)] = v
	l.mu.Unlock()
}

// MembershipController はいいね・ブックマークの切り替えを行う。
// 状態を持たないため、アプリ全体で1つを共有してよい。
type MembershipController struct {
	relation Relation
	remote   Remote
	pusher   NotificationPusher
	metrics  Recorder
}

// NewMembershipController はMembershipControllerを生成する。pusherとmetricsはnilでもよい。
func NewMembershipController(relation Relation, remote Remote, pusher NotificationPusher, metrics Recorder) *MembershipController {
	return &MembershipController{
		relation: relation,
		remote:   remote,
		pusher:   pusher,
		metrics:  metrics,
	}
}

// viewOf はドキュメントのフィールドからuserIDに対する表示を組み立てる。
func (c *MembershipController) viewOf(fields map[string]any, userID string) View {
	members := stringSlice(fields[c.relation.membersField()])
	v := View{Active: contains(members, userID), Count: intValue(fields["likes"]), Members: members}
	if c.relation == RelationBookmark {
		v.Count = len(members)
	}
	return v
}

// Toggle はuserIDのメンバーシップを切り替え、確定した表示を返す。
// userIDが空の場合は読み書きせずサインインへのリダイレクトを返す。
func (c *MembershipController) Toggle(ctx context.Context, ref model.ItemRef, userID string) (Result, error) {
	return c.ToggleLocal(ctx, nil, ref, userID)
}

// ToggleLocal はToggleと同じ切り替えを行い、localの表示を書き込み前に楽観的に更新する。
// localに項目がなければ現在のドキュメントから読み込む。書き込み失敗時はlocalを元に戻す。
// localがnilの場合はToggleと同じ。
func (c *MembershipController) ToggleLocal(ctx context.Context, local *LocalView, ref model.ItemRef, userID string) (Result, error) {
	if userID == "" {
		return Result{Redirect: SignInPath}, nil
	}

	// 1. ローカル表示を楽観的に更新
	var previous View
	if local != nil {
		v, seeded := local.View(ref)
		previous = v
		if !seeded {
			doc, err := c.remote.GetDocument(ctx, ref.Path(), ref.ID)
			if err != nil {
				return Result{}, fmt.Errorf("failed to load %s: %w", ref.Path(), err)
			}
			if doc == nil {
				return Result{}, model.NewDocumentMissingError(ref.Path(), ref.ID)
			}
			previous = c.viewOf(doc.Fields, userID)
		}
		local.set(ref, c.flip(previous, userID))
	}

	// 2. トランザクション内で読み取り・変更・書き込み
	var (
		committed View
		ownerID   string
		title     string
		actorName string
	)
	err := c.remote.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(ctx, ref.Path(), ref.ID)
		if err != nil {
			return err
		}
		if doc == nil {
			return model.NewDocumentMissingError(ref.Path(), ref.ID)
		}
		actor, err := tx.Get(ctx, model.UsersPath, userID)
		if err != nil {
			return err
		}
		if actor != nil {
			actorName = stringValue(actor.Fields["displayName"])
		}

		committed = c.flip(c.viewOf(doc.Fields, userID), userID)

		patch := map[string]any{c.relation.membersField(): committed.Members}
		if c.relation == RelationLike {
			patch["likes"] = committed.Count
		}
		ownerID = stringValue(doc.Fields["author"])
		title = stringValue(doc.Fields["title"])
		return tx.Update(ctx, ref.Path(), ref.ID, patch)
	})

	// 3. 失敗時はローカル表示を元に戻す
	if err != nil {
		if local != nil {
			local.set(ref, previous)
		}
		return Result{}, fmt.Errorf("failed to toggle %s: %w", c.relation, err)
	}
	if local != nil {
		local.set(ref, committed)
	}

	if c.metrics != nil {
		c.metrics.RecordToggle(string(ref.Kind), string(c.relation), committed.Active)
	}

	// 4. いいね追加時は作成者に通知
	if c.relation == RelationLike && committed.Active {
		pushBestEffort(ctx, c.pusher, ownerID, &model.Notification{
			Type:      model.NotificationLike,
			ActorID:   userID,
			ActorName: actorName,
			Message:   fmt.Sprintf("%s liked your %s %q", nameOr(actorName), ref.Kind, title),
			Target:    "/" + string(ref.Kind) + "s/" + ref.ID,
		})
	}

	return Result{View: committed}, nil
}

// flip はuserIDの所属を反転した表示を返す。カウンタは0未満にならない。
func (c *MembershipController) flip(v View, userID string) View {
	next := View{Count: v.Count}
	if contains(v.Members, userID) {
		next.Members = without(v.Members, userID)
		next.Active = false
		if c.relation == RelationLike {
			next.Count = max(v.Count-1, 0)
		}
	} else {
		next.Members = append(append([]string{}, v.Members...), userID)
		next.Active = true
		if c.relation == RelationLike {
			next.Count = v.Count + 1
		}
	}
	if c.relation == RelationBookmark {
		next.Count = len(next.Members)
	}
	return next
}

func nameOr(name string) string {
	if name == "" {
		return "Someone"
	}
	return name
}
