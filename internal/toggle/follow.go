package toggle

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/codersmeet/internal/docstore"
	"github.com/hitoshi/codersmeet/internal/model"
)

// FollowResult はフォロー切り替えの結果。
type FollowResult struct {
	Redirect  string
	Following bool // 切り替え後にフォロー中か
	Followers int  // 対象ユーザーのフォロワー数
}

// FollowController はフォロー・フォロー解除を行う。
// following と followers の2つのエッジは1つのトランザクションで書き込む。
type FollowController struct {
	remote  Remote
	pusher  NotificationPusher
	metrics Recorder
	now     func() time.Time
}

// NewFollowController はFollowControllerを生成する。pusherとmetricsはnilでもよい。
func NewFollowController(remote Remote, pusher NotificationPusher, metrics Recorder) *FollowController {
	return &FollowController{
		remote:  remote,
		pusher:  pusher,
		metrics: metrics,
		now:     time.Now,
	}
}

// Toggle はfollowerIDによるtargetIDのフォロー状態を切り替える。
func (c *FollowController) Toggle(ctx context.Context, followerID, targetID string) (FollowResult, error) {
	if followerID == "" {
		return FollowResult{Redirect: SignInPath}, nil
	}
	if followerID == targetID {
		return FollowResult{}, model.NewInvalidInputError("cannot follow yourself")
	}

	var (
		result       FollowResult
		followerName string
	)
	err := c.remote.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		// 1. 読み取り（書き込みより前にすべて行う）
		edge, err := tx.Get(ctx, model.FollowingPath(followerID), targetID)
		if err != nil {
			return err
		}
		follower, err := tx.Get(ctx, model.UsersPath, followerID)
		if err != nil {
			return err
		}
		if follower == nil {
			return model.NewDocumentMissingError(model.UsersPath, followerID)
		}
		target, err := tx.Get(ctx, model.UsersPath, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return model.NewDocumentMissingError(model.UsersPath, targetID)
		}

		followerName = stringValue(follower.Fields["displayName"])
		followingCount := intValue(follower.Fields["following"])
		followersCount := intValue(target.Fields["followers"])

		// 2. エッジの削除または作成
		if edge != nil {
			if err := tx.Delete(ctx, model.FollowingPath(followerID), targetID); err != nil {
				return err
			}
			if err := tx.Delete(ctx, model.FollowersPath(targetID), followerID); err != nil {
				return err
			}
			followingCount = max(followingCount-1, 0)
			followersCount = max(followersCount-1, 0)
			result.Following = false
		} else {
			now := c.now().UTC()
			toTarget, err := docstore.FieldsOf(edgeOf(targetID, target, now))
			if err != nil {
				return err
			}
			toFollower, err := docstore.FieldsOf(edgeOf(followerID, follower, now))
			if err != nil {
				return err
			}
			if err := tx.Set(ctx, model.FollowingPath(followerID), targetID, toTarget); err != nil {
				return err
			}
			if err := tx.Set(ctx, model.FollowersPath(targetID), followerID, toFollower); err != nil {
				return err
			}
			followingCount++
			followersCount++
			result.Following = true
		}

		// 3. 両ユーザーのカウンタ更新
		if err := tx.Update(ctx, model.UsersPath, followerID, map[string]any{"following": followingCount}); err != nil {
			return err
		}
		result.Followers = followersCount
		return tx.Update(ctx, model.UsersPath, targetID, map[string]any{"followers": followersCount})
	})
	if err != nil {
		return FollowResult{}, fmt.Errorf("failed to toggle follow: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordToggle("user", "follow", result.Following)
	}
	if result.Following {
		pushBestEffort(ctx, c.pusher, targetID, &model.Notification{
			Type:      model.NotificationFollow,
			ActorID:   followerID,
			ActorName: followerName,
			Message:   nameOr(followerName) + " started following you",
			Target:    "/profile/" + followerID,
		})
	}
	return result, nil
}

// IsFollowing はfollowerIDがtargetIDをフォロー中かを返す。
func (c *FollowController) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == "" || targetID == "" {
		return false, nil
	}
	doc, err := c.remote.GetDocument(ctx, model.FollowingPath(followerID), targetID)
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}

// Followers はuidのフォロワー一覧を返す。
func (c *FollowController) Followers(ctx context.Context, uid string) ([]model.FollowEdge, error) {
	return c.listEdges(ctx, model.FollowersPath(uid))
}

// Following はuidがフォローしているユーザー一覧を返す。
func (c *FollowController) Following(ctx context.Context, uid string) ([]model.FollowEdge, error) {
	return c.listEdges(ctx, model.FollowingPath(uid))
}

func (c *FollowController) listEdges(ctx context.Context, path string) ([]model.FollowEdge, error) {
	docs, err := c.remote.ListDocuments(ctx, path)
	if err != nil {
		return nil, err
	}
	edges := make([]model.FollowEdge, 0, len(docs))
	for _, doc := range docs {
		var e model.FollowEdge
		if err := doc.DataTo(&e); err != nil {
			return nil, err
		}
		if e.UID == "" {
			e.UID = doc.ID
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// edgeOf はuidのユーザードキュメントからエッジを作る。
func edgeOf(uid string, user *docstore.Document, at time.Time) model.FollowEdge {
	return model.FollowEdge{
		UID:         uid,
		DisplayName: stringValue(user.Fields["displayName"]),
		PhotoURL:    stringValue(user.Fields["photoURL"]),
		Timestamp:   at,
	}
}
