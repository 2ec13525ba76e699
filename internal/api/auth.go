package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	DOB      *string `json:"dob"`
	Role     string  `json:"role"`
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Signup creates an account. The server does not log the user in.
func (c *Client) Signup(ctx context.Context, r SignupRequest) error {
	if r.Role == "" {
		r.Role = "user"
	}
	return c.doJSON(ctx, http.MethodPost, "/auth/signup", r, nil)
}

// Login exchanges credentials for a bearer token (OAuth2 password form).
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return Token{}, err
	}
	var tok Token
	if err := c.do(req, &tok); err != nil {
		return Token{}, err
	}
	return tok, nil
}

// GoogleLoginURL is the page that starts the Google OAuth handoff. The backend
// redirects to /auth/google/callback?token=... when it completes.
func (c *Client) GoogleLoginURL() string { return c.baseURL + "/auth/google/login" }
