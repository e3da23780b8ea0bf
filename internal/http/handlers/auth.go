package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/eventloop/internal/access"
	"github.com/geocoder89/eventloop/internal/auth"
	"github.com/geocoder89/eventloop/internal/http/middlewares"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/gin-gonic/gin"
)

type CredentialChecker interface {
	Authenticate(ctx context.Context, email, password string) (access.Identity, bool)
}

type SessionTokens interface {
	Issue(id access.Identity) (string, time.Time, error)
	Verify(token string) (*auth.Claims, error)
}

type AuthHandler struct {
	authn        CredentialChecker
	tokens       SessionTokens
	log          *slog.Logger
	prom         *observability.Prom
	secureCookie bool
}

func NewAuthHandler(authn CredentialChecker, tokens SessionTokens, log *slog.Logger, prom *observability.Prom, secureCookie bool) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		authn:        authn,
		tokens:       tokens,
		log:          log,
		prom:         prom,
		secureCookie: secureCookie,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	User    access.Identity `json:"user"`
	Expires time.Time       `json:"expires"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	identity, ok := h.authn.Authenticate(ctx.Request.Context(), req.Email, req.Password)
	h.prom.IncLogin(ok)

	if !ok {
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	token, expiresAt, err := h.tokens.Issue(identity)
	if err != nil {
		RespondErr(ctx, h.log, err, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, token, expiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expiresAt,
		"user":      identity,
	})
}

// Logout only clears the cookie; tokens are stateless and expire on their own.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearSessionCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// Session mirrors the session endpoint browsers poll: an empty object for
// anonymous callers rather than an error.
func (h *AuthHandler) Session(ctx *gin.Context) {
	raw := middlewares.TokenFromRequest(ctx)
	if raw == "" {
		ctx.JSON(http.StatusOK, gin.H{})
		return
	}

	claims, err := h.tokens.Verify(raw)
	if err != nil {
		ctx.JSON(http.StatusOK, gin.H{})
		return
	}

	ctx.JSON(http.StatusOK, sessionResponse{
		User:    claims.Identity(),
		Expires: claims.ExpiresAtTime(),
	})
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.SessionCookie, token, maxAge, "/", "", h.secureCookie, true)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.SessionCookie, "", -1, "/", "", h.secureCookie, true)
}
