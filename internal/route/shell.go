package route

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/codersmeet/internal/middleware"
	"github.com/hitoshi/codersmeet/internal/model"
	"github.com/hitoshi/codersmeet/internal/session"
)

const shellTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} | CodersMeet</title>
</head>
<body data-view="{{.View}}">
<nav>
<a href="/">CodersMeet</a>
<a href="/posts">Posts</a>
<a href="/projects">Projects</a>
<a href="/github">GitHub</a>
{{- if .User}}
<a href="/profile/{{.User.ID}}">{{.User.DisplayName}}</a>
<form method="post" action="/auth/logout"><input type="hidden" name="csrf_token" value="{{.CSRFToken}}"><button type="submit">Sign out</button></form>
{{- else if ne .View "loading"}}
<a href="/signin">Sign in</a>
<a href="/signup">Sign up</a>
{{- end}}
</nav>
<main id="app"{{with .Params.id}} data-id="{{.}}"{{end}}{{with .Params.type}} data-type="{{.}}"{{end}}>
{{- if eq .View "loading"}}
<p>Loading...</p>
{{- else if eq .View "notfound"}}
<h1>404</h1>
<p>Page not found.</p>
{{- else if eq .View "landing"}}
<h1>Connect with developers</h1>
<p>Share posts, projects and snippets with the community.</p>
{{- else}}
<h1>{{.Title}}</h1>
{{- end}}
</main>
</body>
</html>
`

var titles = map[View]string{
	ViewLoading:  "Loading",
	ViewHome:     "Home",
	ViewLanding:  "Welcome",
	ViewSignIn:   "Sign in",
	ViewSignUp:   "Sign up",
	ViewProfile:  "Profile",
	ViewCreate:   "Create",
	ViewGitHub:   "GitHub",
	ViewProjects: "Projects",
	ViewPosts:    "Posts",
	ViewNotFound: "Not found",
}

type pageData struct {
	View   View
	Title  string
	User   *model.User
	Params map[string]string

	CSRFToken string
}

// Shell はルーティング判定に従って画面を描画するhttp.Handler。
type Shell struct {
	tmpl *template.Template
}

// NewShell はShellを生成する。
func NewShell() *Shell {
	return &Shell{tmpl: template.Must(template.New("shell").Parse(shellTemplate))}
}

// ServeHTTP はリクエストのセッションからGateを判定し、画面を描画またはリダイレクトする。
func (s *Shell) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		state SessionState
		user  *model.User
	)
	if st, ok := session.FromContext(r.Context()); ok {
		state = st
		user = st.CurrentUser()
	}

	d := Resolve(r.URL.Path, GateOf(state))
	if d.Redirect != "" {
		http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
		return
	}

	data := pageData{
		View:      d.View,
		Title:     titles[d.View],
		User:      user,
		Params:    d.Params,
		CSRFToken: middleware.CSRFToken(r),
	}
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		slog.Error("failed to render shell",
			slog.String("view", string(d.View)),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if d.View == ViewNotFound {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
