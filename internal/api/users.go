package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/and161185/fastcite/internal/model"
	"github.com/and161185/fastcite/internal/session"
)

// ProfileUpdate holds only the fields that changed; nil means untouched.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Name     *string `json:"name,omitempty"`
	DOB      *string `json:"dob,omitempty"`
}

// Empty reports whether nothing would be sent.
func (u ProfileUpdate) Empty() bool { return u.Username == nil && u.Name == nil && u.DOB == nil }

// ProfileUpdateResult is the response of PUT /users/{id}. The server re-issues
// the token because the username is part of its claims.
type ProfileUpdateResult struct {
	AccessToken string        `json:"access_token"`
	User        model.Profile `json:"user"`
}

// Profile fetches the caller's profile.
func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	if err := c.requireToken(); err != nil {
		return model.Profile{}, err
	}
	var p model.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/users/getmyprofile/me", nil, &p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// UpdateProfile patches profile fields and stores the re-issued token.
func (c *Client) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (ProfileUpdateResult, error) {
	if err := c.requireToken(); err != nil {
		return ProfileUpdateResult{}, err
	}
	var res ProfileUpdateResult
	if err := c.doJSON(ctx, http.MethodPut, "/users/"+url.PathEscape(userID), upd, &res); err != nil {
		return ProfileUpdateResult{}, err
	}
	if res.AccessToken != "" && c.sessions != nil {
		if err := c.sessions.Save(session.FromToken(res.AccessToken)); err != nil {
			return res, err
		}
	}
	return res, nil
}

// ChangePassword updates the password.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := c.requireToken(); err != nil {
		return err
	}
	body := map[string]string{"old_password": oldPassword, "new_password": newPassword}
	return c.doJSON(ctx, http.MethodPut, "/users/changepassword", body, nil)
}
