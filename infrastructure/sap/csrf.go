package sap

import (
	"context"
	"io"
	"net/http"
	"strings"

	"dockout/infrastructure/upstream"
)

// Session is the anti-forgery token and folded cookies for one mutating call.
type Session struct {
	CSRFToken string
	Cookie    string
}

// AcquireSession performs the OData CSRF handshake against endpoint. Tokens
// are single-use per session window, so nothing is cached.
func (c *Client) AcquireSession(ctx context.Context, endpoint, method string) (Session, error) {
	req, err := c.newRequest(ctx, method, endpoint, nil)
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("X-CSRF-Token", "Fetch")

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, &upstream.SessionError{Endpoint: endpoint, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if !upstream.IsSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		reason := strings.TrimSpace(string(body))
		if reason == "" {
			reason = "failed to fetch CSRF token"
		}
		return Session{}, &upstream.SessionError{Endpoint: endpoint, Status: resp.StatusCode, Reason: reason}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	token := strings.TrimSpace(resp.Header.Get("X-CSRF-Token"))
	if token == "" {
		return Session{}, &upstream.SessionError{Endpoint: endpoint, Status: resp.StatusCode, Reason: "CSRF token not found in response"}
	}
	cookie := FoldCookies(resp.Header.Values("Set-Cookie"))
	if cookie == "" {
		return Session{}, &upstream.SessionError{Endpoint: endpoint, Status: resp.StatusCode, Reason: "no cookies found in response"}
	}
	return Session{CSRFToken: token, Cookie: cookie}, nil
}

// FoldCookies joins the name=value part of each Set-Cookie header, dropping
// attributes, into one Cookie header value.
func FoldCookies(setCookies []string) string {
	pairs := make([]string, 0, len(setCookies))
	for _, raw := range setCookies {
		pair, _, _ := strings.Cut(raw, ";")
		pair = strings.TrimSpace(pair)
		if pair == "" || !strings.Contains(pair, "=") {
			continue
		}
		pairs = append(pairs, pair)
	}
	return strings.Join(pairs, "; ")
}

func (c *Client) applySession(req *http.Request, s Session) {
	req.Header.Set("X-CSRF-Token", s.CSRFToken)
	req.Header.Set("Cookie", s.Cookie)
	req.Header.Set("Content-Type", "application/json")
}
