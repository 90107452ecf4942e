// Package main provides a CI-friendly smoke test for the auth session endpoints.
//
// Against a running server it validates:
//   - register (or login when the account exists)
//   - /me with the access token
//   - two refreshes through the cookie jar, each rotating the cookie
//   - the replaced refresh value is rejected
//   - logout clears the cookie and refresh fails afterwards
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

const cookieName = "refreshToken"

type authResponse struct {
	AccessToken string `json:"accessToken"`
	UserID      int64  `json:"userId"`
	Role        string `json:"role"`
	Username    string `json:"username"`
}

type smoke struct {
	base    *url.URL
	client  *http.Client
	timeout time.Duration
	verbose bool
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		username = flag.String("user", fmt.Sprintf("smoke_%d", time.Now().Unix()), "Username to register or log in")
		password = flag.String("password", "smoke-test-password-1", "Password")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	u, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid -url: %v", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookie jar: %v", err)
	}
	s := &smoke{base: u, client: &http.Client{Jar: jar}, timeout: *timeout, verbose: *verbose}

	auth := s.mustRegisterOrLogin(*username, *password)
	s.mustMe(auth.AccessToken, auth.UserID)

	first := s.mustCookie()
	s.mustRefresh()
	second := s.mustCookie()
	if first == second {
		fatalf("refresh did not rotate the cookie")
	}
	s.mustRefresh()

	if status := s.refreshWith(first); status != http.StatusUnauthorized {
		fatalf("replaced refresh value accepted: status=%d", status)
	}

	s.mustLogout()
	if status := s.refreshWith(s.cookieOrEmpty()); status != http.StatusUnauthorized {
		fatalf("refresh after logout: status=%d", status)
	}

	fmt.Printf("OK: user=%s id=%d role=%s\n", auth.Username, auth.UserID, auth.Role)
}

func validateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func (s *smoke) do(method, path string, body any, bearer string) (int, []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.base.String()+path, r)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := s.client.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	out, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if s.verbose {
		fmt.Printf("%s %s -> %d\n", method, path, res.StatusCode)
	}
	return res.StatusCode, out
}

func (s *smoke) mustRegisterOrLogin(username, password string) authResponse {
	status, body := s.do(http.MethodPost, "/auth/register", map[string]string{
		"username":        username,
		"email":           username + "@smoke.invalid",
		"password":        password,
		"confirmPassword": password,
	}, "")
	if status == http.StatusConflict {
		status, body = s.do(http.MethodPost, "/auth/login", map[string]string{
			"username": username,
			"password": password,
		}, "")
	}
	if status != http.StatusCreated && status != http.StatusOK {
		fatalf("register/login: status=%d body=%s", status, body)
	}
	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		fatalf("decode auth response: %v", err)
	}
	if auth.AccessToken == "" || auth.UserID <= 0 {
		fatalf("auth response incomplete: %s", body)
	}
	return auth
}

func (s *smoke) mustMe(token string, wantID int64) {
	status, body := s.do(http.MethodGet, "/me", nil, token)
	if status != http.StatusOK {
		fatalf("/me: status=%d body=%s", status, body)
	}
	var me struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &me); err != nil || me.ID != wantID {
		fatalf("/me: unexpected body %s", body)
	}
}

func (s *smoke) mustRefresh() {
	status, body := s.do(http.MethodPost, "/auth/refresh", nil, "")
	if status != http.StatusOK {
		fatalf("refresh: status=%d body=%s", status, body)
	}
}

// refreshWith presents value in the JSON body with an empty jar, so the cookie cannot win.
func (s *smoke) refreshWith(value string) int {
	other := &smoke{base: s.base, client: &http.Client{}, timeout: s.timeout, verbose: s.verbose}
	status, _ := other.do(http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": value}, "")
	return status
}

func (s *smoke) mustLogout() {
	status, body := s.do(http.MethodPost, "/auth/logout", nil, "")
	if status != http.StatusNoContent {
		fatalf("logout: status=%d body=%s", status, body)
	}
	if s.cookieOrEmpty() != "" {
		fatalf("logout did not clear the refresh cookie")
	}
}

func (s *smoke) mustCookie() string {
	v := s.cookieOrEmpty()
	if v == "" {
		fatalf("no %s cookie in jar (is SOCIAL_AUTH_COOKIE_SECURE=false for plain http?)", cookieName)
	}
	return v
}

func (s *smoke) cookieOrEmpty() string {
	for _, c := range s.client.Jar.Cookies(s.base) {
		if c.Name == cookieName {
			return c.Value
		}
	}
	return ""
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
