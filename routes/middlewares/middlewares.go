package middlewares

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"

	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
)

const refreshCookieMaxAge = 60 * 60 * 24 * 365

// RequireRole checks the OAuth bearer token, and lets the request through
// only if it carries at least one of roles.
func RequireRole(secret string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), hasRole(roles)).Handler(next)
	}
}

func hasRole(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

			granted := false
			if rolesClaim, ok := claims["roles"]; ok {
				for _, role := range strings.Split(rolesClaim, ",") {
					if slices.Contains(allowed, role) {
						granted = true
						break
					}
				}
			}

			if !granted {
				httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "auth.role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CookieAuth moves the access_token cookie into the authorization header of
// GET requests. When the token is missing or expired it tries the
// refresh_token cookie, and redirects to the login page as a last resort.
func CookieAuth(bearerServer *oauth.BearerServer) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				h.ServeHTTP(w, r)
				return
			}

			token, err := r.Cookie("access_token")
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				httpx.LogInternalError(w, "auth.cookie.access_token", err)
				return
			}
			if err == nil {
				r.Header.Set("authorization", "Bearer "+token.Value)
				buf := httpx.NewResponseBuffer()
				h.ServeHTTP(buf, r)
				if buf.Status() != http.StatusUnauthorized {
					buf.Flush(w)
					return
				}
			}

			loginLocation := "/login?goto=" + url.QueryEscape(r.RequestURI)

			refreshToken, err := r.Cookie("refresh_token")
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					httpx.LogInternalError(w, "auth.cookie.refresh_token", err)
					return
				}

				log.Debug("auth.cookie.login_redirect")
				http.Redirect(w, r, loginLocation, http.StatusTemporaryRedirect)
				return
			}

			body := url.Values{
				"grant_type":    {"refresh_token"},
				"refresh_token": {refreshToken.Value},
			}
			req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(body.Encode()))
			if err != nil {
				httpx.LogInternalError(w, "auth.cookie.refresh.new_request", err)
				return
			}
			req.Header.Set("content-type", "application/x-www-form-urlencoded")
			req.Header.Set("content-length", strconv.Itoa(len(body.Encode())))

			resp := httpx.NewResponseBuffer()
			bearerServer.UserCredentials(resp, req)
			if resp.Status() == http.StatusUnauthorized {
				http.SetCookie(w, &http.Cookie{
					Path:     "/",
					Name:     "refresh_token",
					Value:    "",
					MaxAge:   -1,
					SameSite: http.SameSiteNoneMode,
				})
				log.Debug("auth.cookie.refresh_rejected")
				http.Redirect(w, r, loginLocation, http.StatusTemporaryRedirect)
				return
			}
			if resp.Status() != http.StatusOK {
				httpx.LogStatus(w, resp.Status(), log.WarnLevel, "auth.cookie.refresh")
				return
			}

			var tokens struct {
				AccessToken  string `json:"access_token"`
				RefreshToken string `json:"refresh_token"`
				ExpiresIn    int    `json:"expires_in"`
			}
			if err = resp.DecodeJSON(&tokens); err != nil {
				httpx.LogInternalError(w, "auth.cookie.refresh.parse", err)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Path:     "/",
				Name:     "access_token",
				Value:    tokens.AccessToken,
				MaxAge:   tokens.ExpiresIn,
				SameSite: http.SameSiteNoneMode,
			})
			http.SetCookie(w, &http.Cookie{
				Path:     "/",
				Name:     "refresh_token",
				Value:    tokens.RefreshToken,
				MaxAge:   refreshCookieMaxAge,
				SameSite: http.SameSiteNoneMode,
			})

			r.Header.Set("authorization", "Bearer "+tokens.AccessToken)
			h.ServeHTTP(w, r)
		})
	}
}
