package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hafizbahtiar/console/internal/config"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/hafizbahtiar/console/internal/tokens"
)

const cookiePath = "/"

// SessionHandler mirrors the client's token pair into cookies so the guard
// can see it on page loads. It never talks to the backend.
//
// Writes are accepted from the console's own origin and cfg.AllowedOrigins
// only, and Establish insists on a JSON body, which a plain cross-site form
// cannot produce without a preflight.
type SessionHandler struct {
	cfg     config.GuardConfig
	origins map[string]struct{}
	now     func() time.Time
}

func NewSessionHandler(cfg config.GuardConfig) *SessionHandler {
	return &SessionHandler{cfg: cfg, origins: originSet(cfg.AllowedOrigins), now: time.Now}
}

type sessionStatus struct {
	HasToken  bool       `json:"hasToken"`
	Email     string     `json:"email,omitempty"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Establish godoc
// @Summary Store the token pair as cookies
// @Tags session
// @Accept json
// @Produce json
// @Param request body model.AuthResponse true "Token pair"
// @Success 200 {object} sessionStatus
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 415 {object} model.ErrorResponse
// @Router /_session [post]
func (h *SessionHandler) Establish(c *gin.Context) {
	if !h.checkOrigin(c) {
		return
	}
	if c.ContentType() != gin.MIMEJSON {
		writeSessionError(c, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}

	var req model.AuthResponse
	if err := c.ShouldBindJSON(&req); err != nil || !req.Tokens().Complete() {
		writeSessionError(c, http.StatusBadRequest, "accessToken and refreshToken are required")
		return
	}

	h.setCookie(c, tokens.AccessTokenKey, req.AccessToken, 0)
	h.setCookie(c, tokens.RefreshTokenKey, req.RefreshToken, 0)
	c.JSON(http.StatusOK, h.status(req.AccessToken))
}

// Status godoc
// @Summary Report whether the request carries a usable token
// @Tags session
// @Produce json
// @Success 200 {object} sessionStatus
// @Router /_session [get]
func (h *SessionHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.status(requestToken(c, h.now())))
}

// Clear godoc
// @Summary Drop the token cookies
// @Tags session
// @Produce json
// @Success 200 {object} model.StatusResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /_session [delete]
func (h *SessionHandler) Clear(c *gin.Context) {
	if !h.checkOrigin(c) {
		return
	}
	h.setCookie(c, tokens.AccessTokenKey, "", -1)
	h.setCookie(c, tokens.RefreshTokenKey, "", -1)
	c.JSON(http.StatusOK, model.StatusResponse{Status: "logged_out"})
}

func (h *SessionHandler) status(token string) sessionStatus {
	if token == "" || tokens.Expired(token, h.now()) {
		return sessionStatus{}
	}
	st := sessionStatus{HasToken: true}
	if claims, err := tokens.Inspect(token); err == nil {
		st.Email = claims.Email
		st.Role = claims.Role
		if claims.ExpiresAt != nil {
			exp := claims.ExpiresAt.Time
			st.ExpiresAt = &exp
		}
	}
	return st
}

// checkOrigin rejects a write whose Origin is neither this host nor allowed.
// Requests without an Origin header (curl, same-origin GETs) pass.
func (h *SessionHandler) checkOrigin(c *gin.Context) bool {
	origin := c.GetHeader("Origin")
	if origin == "" {
		return true
	}
	if _, ok := h.origins[origin]; ok {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host != "" && u.Host == c.Request.Host {
		return true
	}
	writeSessionError(c, http.StatusForbidden, "origin not allowed")
	return false
}

func writeSessionError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message, "statusCode": status})
}

func (h *SessionHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, cookiePath, h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}
