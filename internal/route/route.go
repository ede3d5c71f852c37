// Package route は認証状態に応じた画面の振り分けを提供する。
package route

import (
	"strings"

	"github.com/hitoshi/codersmeet/internal/model"
)

// Gate は認証状態の解決段階を表す。
type Gate int

const (
	GateResolving Gate = iota
	GateLoggedIn
	GateLoggedOut
)

// String はGateの名前を返す。
func (g Gate) String() string {
	switch g {
	case GateResolving:
		return "resolving"
	case GateLoggedIn:
		return "logged_in"
	case GateLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// SessionState はゲート判定に必要なセッションの状態。
type SessionState interface {
	IsResolving() bool
	IsAuthenticated() bool
}

// GateOf はセッションの状態からGateを判定する。sがnilの場合は未ログインとして扱う。
func GateOf(s SessionState) Gate {
	switch {
	case s == nil:
		return GateLoggedOut
	case s.IsResolving():
		return GateResolving
	case s.IsAuthenticated():
		return GateLoggedIn
	default:
		return GateLoggedOut
	}
}

// Access はルートのアクセス制限を表す。
type Access int

const (
	AccessAny   Access = iota // 誰でも
	AccessGuest               // 未ログインのみ
	AccessAuth                // ログイン必須
)

// View は描画する画面を表す。
type View string

const (
	ViewLoading  View = "loading"
	ViewHome     View = "home"
	ViewLanding  View = "landing"
	ViewSignIn   View = "signin"
	ViewSignUp   View = "signup"
	ViewProfile  View = "profile"
	ViewCreate   View = "create"
	ViewGitHub   View = "github"
	ViewProjects View = "projects"
	ViewPosts    View = "posts"
	ViewNotFound View = "notfound"
)

// RootPath はホーム（ログイン時）とランディング（未ログイン時）のパス。
const RootPath = "/"

// Decision はルーティングの判定結果。Redirectが空でない場合はリダイレクトする。
type Decision struct {
	View     View
	Redirect string
	Params   map[string]string
}

type entry struct {
	segments []string // "{name}" はパラメータ
	access   Access
	view     View
	redirect string
}

var table = []entry{
	{segments: nil, access: AccessAny, view: ViewHome},
	{segments: []string{"signin"}, access: AccessGuest, view: ViewSignIn},
	{segments: []string{"signup"}, access: AccessGuest, view: ViewSignUp},
	{segments: []string{"profile", "{id}"}, access: AccessAuth, view: ViewProfile},
	{segments: []string{"create", "{type}"}, access: AccessAuth, view: ViewCreate},
	{segments: []string{"github"}, access: AccessAny, view: ViewGitHub},
	{segments: []string{"projects"}, access: AccessAny, view: ViewProjects},
	{segments: []string{"posts"}, access: AccessAny, view: ViewPosts},
	{segments: []string{"notifications"}, access: AccessAny, redirect: RootPath},
}

// Resolve はパスと認証状態から描画する画面を決定する。
//   - 解決中はすべてのルートでローディング画面
//   - 未ログインでログイン必須のルートはランディングへリダイレクト
//   - ログイン済みで未ログイン専用のルートはホームへリダイレクト
//   - 一致しないパスはNotFound
func Resolve(path string, gate Gate) Decision {
	if gate == GateResolving {
		return Decision{View: ViewLoading}
	}

	e, params, ok := match(path)
	if !ok {
		return Decision{View: ViewNotFound}
	}
	if e.redirect != "" {
		return Decision{Redirect: e.redirect}
	}

	switch {
	case e.access == AccessAuth && gate != GateLoggedIn:
		return Decision{Redirect: RootPath}
	case e.access == AccessGuest && gate == GateLoggedIn:
		return Decision{Redirect: RootPath}
	}

	view := e.view
	if view == ViewHome && gate != GateLoggedIn {
		view = ViewLanding
	}
	return Decision{View: view, Params: params}
}

// match はパスに一致するルートを探す。
func match(path string) (entry, map[string]string, bool) {
	segments := splitPath(path)
	for _, e := range table {
		params, ok := matchSegments(e.segments, segments)
		if !ok {
			continue
		}
		if t, has := params["type"]; has {
			if _, valid := model.ParseKind(t); !valid {
				return entry{}, nil, false
			}
		}
		return e, params, true
	}
	return entry{}, nil, false
}

func matchSegments(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	var params map[string]string
	for i, p := range pattern {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if segments[i] == "" {
				return nil, false
			}
			if params == nil {
				params = map[string]string{}
			}
			params[strings.Trim(p, "{}")] = segments[i]
			continue
		}
		if p != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// splitPath はパスをセグメントに分割する。末尾のスラッシュは無視する。
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
