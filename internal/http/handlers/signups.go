package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/eventloop/internal/config"
	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/domain/signup"
	"github.com/geocoder89/eventloop/internal/http/middlewares"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/gin-gonic/gin"
)

type SignupsStore interface {
	Create(ctx context.Context, eventID, userID string) (signup.SignUp, error)
	Delete(ctx context.Context, eventID, userID string) error
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]signup.WithEvent, error)
}

type SignupsHandler struct {
	repo    SignupsStore
	log     *slog.Logger
	prom    *observability.Prom
	timeout time.Duration
}

func NewSignupsHandler(repo SignupsStore, log *slog.Logger, prom *observability.Prom, timeout time.Duration) *SignupsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SignupsHandler{repo: repo, log: log, prom: prom, timeout: timeout}
}

// SignUp is idempotent: a second attempt reports success with a message.
func (h *SignupsHandler) SignUp(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Unauthorized")
		return
	}

	eventID := ctx.Param("id")

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	s, err := h.repo.Create(cctx, eventID, userID)

	switch {
	case err == nil:
		h.prom.IncSignupOutcome("created")
		h.log.InfoContext(ctx.Request.Context(), "signup.created", "event_id", eventID, "user_id", userID, "signup_id", s.ID)
		ctx.JSON(http.StatusOK, gin.H{"success": true, "signup": s})

	case errors.Is(err, signup.ErrAlreadySignedUp):
		h.prom.IncSignupOutcome("duplicate")
		ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "You are already signed up for this event"})

	case errors.Is(err, event.ErrNotFound):
		h.prom.IncSignupOutcome("not_found")
		RespondNotFound(ctx, "Event not found")

	default:
		h.prom.IncSignupOutcome("error")
		RespondErr(ctx, h.log, err, "Could not sign up for event")
	}
}

func (h *SignupsHandler) Withdraw(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Unauthorized")
		return
	}

	eventID := ctx.Param("id")

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	err := h.repo.Delete(cctx, eventID, userID)

	if err != nil {
		if errors.Is(err, signup.ErrNotSignedUp) {
			ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "You were not signed up for this event"})
			return
		}
		RespondErr(ctx, h.log, err, "Could not withdraw from event")
		return
	}

	h.prom.IncSignupOutcome("withdrawn")
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Successfully unsubscribed from event"})
}

func (h *SignupsHandler) MySignups(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Unauthorized")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	list, err := h.repo.ListForUser(cctx, userID)
	if err != nil {
		RespondErr(ctx, h.log, err, "Internal Server Error")
		return
	}

	if list == nil {
		list = []signup.WithEvent{}
	}

	ctx.JSON(http.StatusOK, list)
}

// SignupStatus answers for anonymous callers too: they are never signed up.
func (h *SignupsHandler) SignupStatus(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusOK, gin.H{"isSignedUp": false})
		return
	}

	eventID := strings.TrimSpace(ctx.Param("eventId"))
	if eventID == "" {
		RespondBadRequest(ctx, "Event ID required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	exists, err := h.repo.Exists(cctx, eventID, userID)
	if err != nil {
		RespondErr(ctx, h.log, err, "Could not check signup status")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"isSignedUp": exists})
}
