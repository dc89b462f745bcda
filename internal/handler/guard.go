package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hafizbahtiar/console/internal/config"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/hafizbahtiar/console/internal/tokens"
)

const guardTokenKey = "guard_token"

// GuardMiddleware gates page routes on token presence.
//
//   - protected prefixes without a usable token redirect to the login route
//     with ?redirect=<original path>
//   - guest-only prefixes with a token redirect to the landing route
//   - owner prefixes additionally require the owner role claim
//
// An expired JWT counts as no token. Opaque tokens are accepted as present
// but never satisfy the owner check.
func GuardMiddleware(cfg config.GuardConfig) gin.HandlerFunc {
	return guard(cfg, time.Now)
}

func guard(cfg config.GuardConfig, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		token := requestToken(c, now())
		hasToken := token != ""

		switch {
		case matchPrefix(cfg.GuestPrefix, path):
			if hasToken {
				redirect(c, cfg.LandingRoute)
				return
			}
		case matchPrefix(cfg.ProtectedPrefix, path) || matchPrefix(cfg.OwnerPrefix, path):
			if !hasToken {
				redirect(c, loginRedirect(cfg.LoginRoute, c.Request.URL))
				return
			}
			if matchPrefix(cfg.OwnerPrefix, path) && !isOwner(token) {
				redirect(c, cfg.LandingRoute)
				return
			}
		}

		if hasToken {
			c.Set(guardTokenKey, token)
		}
		c.Next()
	}
}

// requestToken returns the first unexpired token from the access token
// cookie or the bearer header, in that order, or "" when neither has one.
func requestToken(c *gin.Context, now time.Time) string {
	if v, err := c.Cookie(tokens.AccessTokenKey); err == nil && v != "" && !tokens.Expired(v, now) {
		return v
	}
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	v := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if v == "" || tokens.Expired(v, now) {
		return ""
	}
	return v
}

func isOwner(token string) bool {
	claims, err := tokens.Inspect(token)
	if err != nil {
		return false
	}
	return claims.Role == model.RoleOwner
}

// matchPrefix matches whole path segments: "/admin" covers "/admin/users"
// but not "/administrator".
func matchPrefix(prefixes []string, path string) bool {
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func loginRedirect(login string, u *url.URL) string {
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return login + "?redirect=" + url.QueryEscape(target)
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusFound, location)
	c.Abort()
}

// GuardToken returns the token the guard accepted for this request.
func GuardToken(c *gin.Context) string {
	return c.GetString(guardTokenKey)
}
