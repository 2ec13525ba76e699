package router

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/fastcite/internal/errs"
)

func TestResolve(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		path     string
		token    bool
		route    string
		redirect string
		params   map[string]string
	}{
		{"protected without token", "/dashboard", false, PathDash, PathLogin, nil},
		{"protected upload without token", "/upload", false, PathUpload, PathLogin, nil},
		{"root with token", "/", true, PathRoot, PathDash, nil},
		{"root without token", "", false, PathRoot, PathLogin, nil},
		{"protected with token", "/manage", true, PathManage, "", nil},
		{"public without token", "/signup", false, PathSignup, "", nil},
		{"login with token still renders", "/login", true, PathLogin, "", nil},
		{"chat param", "/chat/abc123", true, PathChat, "", map[string]string{"id": "abc123"}},
		{"trailing slash and query", "/setting/?tab=prefs", true, PathSettings, "", nil},
		{"callback", "/auth/google/callback?token=x", false, PathCallback, "", nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d, err := Resolve(tc.path, tc.token)
			require.NoError(t, err)
			require.Equal(t, tc.route, d.Route.Path)
			require.Equal(t, tc.redirect, d.Redirect)
			require.Equal(t, tc.redirect != "", d.Redirected())
			if tc.params != nil {
				require.Equal(t, tc.params, d.Params)
			}
		})
	}
}

func TestResolve_Unknown(t *testing.T) {
	t.Parallel()
	for _, p := range []string{"/nope", "/chat", "/chat/", "/chat/a/b"} {
		_, err := Resolve(p, true)
		require.ErrorIs(t, err, errs.ErrNotFound, p)
	}
}

func TestChatPath(t *testing.T) {
	t.Parallel()
	d, err := Resolve(ChatPath("x1"), true)
	require.NoError(t, err)
	require.Equal(t, "x1", d.Params["id"])
}
