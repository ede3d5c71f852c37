package model

import (
	"fmt"
	"time"
)

// FollowEdge はフォロー関係の片方向のエッジを表す。
// users/{a}/following/{b} と users/{b}/followers/{a} の対で保存される。
type FollowEdge struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	Timestamp   time.Time `json:"timestamp"`
}

// FollowingPath はuidがフォローしているユーザーのコレクションパスを返す。
func FollowingPath(uid string) string {
	return fmt.Sprintf("users/%s/following", uid)
}

// FollowersPath はuidのフォロワーのコレクションパスを返す。
func FollowersPath(uid string) string {
	return fmt.Sprintf("users/%s/followers", uid)
}

// 通知種別
const (
	NotificationFollow  = "follow"
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationProject = "project"
	NotificationStar    = "star"
)

// Notification はusers/{uid}/notifications/{id}に保存される通知を表す。
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
	Message   string    `json:"message"`
	Target    string    `json:"target"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationsPath はuidの通知コレクションパスを返す。
func NotificationsPath(uid string) string {
	return fmt.Sprintf("users/%s/notifications", uid)
}

// UsersPath はユーザープロフィールのコレクションパス。
const UsersPath = "users"
