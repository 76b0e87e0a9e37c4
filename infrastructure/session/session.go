package session

import (
	"net/http"
	"time"
)

// CookieName carries the workflow run id. The run itself stays on the server.
const CookieName = "X-Dockout-Run"

// RunTTL is how long an idle run is kept.
const RunTTL = 12 * time.Hour

func RunCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
	}
}
