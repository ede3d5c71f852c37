// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// User はusers/{uid}に保存されるプロフィールを表す。
type User struct {
	ID            string    `json:"uid"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	Username      string    `json:"username"`
	PhotoURL      string    `json:"photoURL"`
	Bio           string    `json:"bio"`
	Skills        []string  `json:"skills"`
	GitHub        string    `json:"github"`
	GitHubLogin   string    `json:"githubUsername"`
	Website       string    `json:"website"`
	Followers     int       `json:"followers"`
	Following     int       `json:"following"`
	Contributions int       `json:"contributions"`
	CreatedAt     time.Time `json:"createdAt"`
	LastLogin     time.Time `json:"lastLogin"`
}

// ApplyDefaults は欠損フィールドにデフォルト値を設定する。
func (u *User) ApplyDefaults() {
	if u.Skills == nil {
		u.Skills = []string{}
	}
	if u.Username == "" {
		u.Username = UsernameFromEmail(u.Email)
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
}

// UsernameFromEmail はメールアドレスのローカル部をユーザー名として返す。
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// Principal は認証プロバイダーが返す認証済みIDを表す。
// users/{uid}のプロフィールとは別物として扱う。
type Principal struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Provider    string // "password", "google"
}

// Account はメールアドレス・パスワード認証の資格情報を表す。
// accounts/{lower(email)}に保存される。
type Account struct {
	Email        string    `json:"email"`
	UID          string    `json:"uid"`
	DisplayName  string    `json:"displayName"`
	PhotoURL     string    `json:"photoURL"`
	Provider     string    `json:"provider"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity は外部IdPとの紐付け情報を表す。
// identities/{provider}:{providerUserID}に保存される。
type Identity struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"providerUserId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Key はidentitiesコレクションでのドキュメントIDを返す。
func (i *Identity) Key() string {
	return i.Provider + ":" + i.ProviderUserID
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired はnow時点でセッションが期限切れかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
