package routes

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

// Login exchanges HTTP basic credentials for a bearer token pair.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		r.Body = io.NopCloser(strings.NewReader(body.Encode()))
		r.Header.Set("content-type", "application/x-www-form-urlencoded")
		r.Header.Set("content-length", strconv.Itoa(len(body.Encode())))
		app.UserCredentials(w, r)
	}
}

// Refresh exchanges an "Authorization: Refresh <token>" header for a new
// token pair. Refresh tokens are single use.
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		body := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, "/", strings.NewReader(body.Encode()))
		if err != nil {
			httpx.LogInternalError(w, "refresh.new_request", err)
			return
		}
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
		req.Header.Set("content-length", strconv.Itoa(len(body.Encode())))

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		if err = resp.Flush(w); err != nil {
			log.Debugf("refresh.flush: %s", err)
		}
	}
}
