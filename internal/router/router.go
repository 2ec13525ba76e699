// Package router maps client paths to views and applies the auth guard.
package router

import (
	"strings"

	"github.com/and161185/fastcite/internal/errs"
)

// Route paths.
const (
	PathRoot     = "/"
	PathLogin    = "/login"
	PathSignup   = "/signup"
	PathCallback = "/auth/google/callback"
	PathDash     = "/dashboard"
	PathUpload   = "/upload"
	PathManage   = "/manage"
	PathNewChat  = "/new-chat"
	PathChat     = "/chat/{id}"
	PathSettings = "/setting"
)

// Route is one entry of the route table.
type Route struct {
	Path      string
	Name      string
	Protected bool
}

// Routes is the fixed route table.
var Routes = []Route{
	{Path: PathRoot, Name: "root"},
	{Path: PathLogin, Name: "login"},
	{Path: PathSignup, Name: "signup"},
	{Path: PathCallback, Name: "oauth-callback"},
	{Path: PathDash, Name: "dashboard", Protected: true},
	{Path: PathUpload, Name: "upload", Protected: true},
	{Path: PathManage, Name: "manage", Protected: true},
	{Path: PathNewChat, Name: "new-chat", Protected: true},
	{Path: PathChat, Name: "chat", Protected: true},
	{Path: PathSettings, Name: "settings", Protected: true},
}

// Decision is the outcome of resolving a path. When Redirect is set the
// caller must navigate there instead of rendering Route.
type Decision struct {
	Route    Route
	Redirect string
	Params   map[string]string
}

// Redirected reports whether the decision is a redirect.
func (d Decision) Redirected() bool { return d.Redirect != "" }

// Resolve applies the guard. Only token presence is checked.
func Resolve(path string, hasToken bool) (Decision, error) {
	path = clean(path)
	r, params, ok := match(path)
	if !ok {
		return Decision{}, errs.ErrNotFound
	}
	if r.Path == PathRoot {
		if hasToken {
			return Decision{Route: r, Redirect: PathDash}, nil
		}
		return Decision{Route: r, Redirect: PathLogin}, nil
	}
	if r.Protected && !hasToken {
		return Decision{Route: r, Redirect: PathLogin, Params: params}, nil
	}
	return Decision{Route: r, Params: params}, nil
}

// ChatPath builds the path of one chat view.
func ChatPath(id string) string { return "/chat/" + id }

func clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return PathRoot
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = PathRoot
		}
	}
	return p
}

func match(path string) (Route, map[string]string, bool) {
	for _, r := range Routes {
		if r.Path == path {
			return r, nil, true
		}
		prefix, param, ok := strings.Cut(r.Path, "{")
		if !ok {
			continue
		}
		name := strings.TrimSuffix(param, "}")
		rest, found := strings.CutPrefix(path, prefix)
		if found && rest != "" && !strings.Contains(rest, "/") {
			return r, map[string]string{name: rest}, true
		}
	}
	return Route{}, nil, false
}
