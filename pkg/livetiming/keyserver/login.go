package keyserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mpapenbr/livetiming-feed-go/log"
)

const (
	DefaultLoginURL = "https://secure.formula1.com/reg/login"
	authCookie      = "USER"
)

// Login posts the user credentials and returns the value of the USER
// cookie, which is the credential expected by the key server.
func Login(ctx context.Context, client *http.Client, loginURL, email, password string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	// the cookie is set on the redirect response
	cli := *client
	cli.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	form := url.Values{"email": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	log.Default().Named("keyserver").Info("logging in",
		log.String("url", loginURL), log.String("user", email))
	resp, err := cli.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	for _, c := range resp.Cookies() {
		if c.Name == authCookie && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("%w: no %s cookie in login response (%s)",
		ErrAuthInvalid, authCookie, resp.Status)
}
