package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/eventloop/internal/config"
	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/http/middlewares"
	"github.com/geocoder89/eventloop/internal/sanitize"
	"github.com/gin-gonic/gin"
)

type EventsStore interface {
	List(ctx context.Context) ([]event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	Create(ctx context.Context, creatorID string, f event.Fields) (event.Event, error)
	Update(ctx context.Context, id string, f event.Fields) (event.Event, error)
	Delete(ctx context.Context, id string) error
}

type EventsHandler struct {
	repo    EventsStore
	log     *slog.Logger
	timeout time.Duration
}

func NewEventsHandler(repo EventsStore, log *slog.Logger, timeout time.Duration) *EventsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventsHandler{repo: repo, log: log, timeout: timeout}
}

// cleanFields sanitises text input and re-checks the rules sanitising can
// break (a title made only of markup is empty afterwards).
func cleanFields(f event.Fields) (event.Fields, []FieldError) {
	f.Title = sanitize.Text(f.Title)
	f.Description = sanitize.HTML(f.Description)
	f.Location = sanitize.TextPtr(f.Location)

	if f.ImageURL != nil {
		v := strings.TrimSpace(*f.ImageURL)
		if v == "" {
			f.ImageURL = nil
		} else {
			f.ImageURL = &v
		}
	}

	var errs []FieldError
	if utf8.RuneCountInString(f.Title) < 3 {
		errs = append(errs, FieldError{Field: "title", Rule: "min", Param: "3", Message: validationMessage("min", "3")})
	}
	if err := f.Validate(); err != nil {
		errs = append(errs, FieldError{Field: "endTime", Rule: "gtfield", Param: "StartTime", Message: validationMessage("gtfield", "StartTime")})
	}
	return f, errs
}

func (h *EventsHandler) ListEvents(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	events, err := h.repo.List(cctx)

	if err != nil {
		RespondErr(ctx, h.log, err, "Could not list events")
		return
	}

	if events == nil {
		events = []event.Event{}
	}

	ctx.JSON(http.StatusOK, events)
}

func (h *EventsHandler) GetEventByID(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	e, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondErr(ctx, h.log, err, "Could not fetch event")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, e)
}

func (h *EventsHandler) CreateEvent(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Unauthorized")
		return
	}

	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	fields, fieldErrs := cleanFields(req.Fields())
	if len(fieldErrs) > 0 {
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": fieldErrs})
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	created, err := h.repo.Create(cctx, identity.ID, fields)

	if err != nil {
		RespondErr(ctx, h.log, err, "Failed to create event")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "event.created", "event_id", created.ID, "creator_id", identity.ID)

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    created,
	})
}

func (h *EventsHandler) UpdateEvent(ctx *gin.Context) {
	if _, ok := middlewares.IdentityFromContext(ctx); !ok {
		RespondUnauthorized(ctx, "unauthorized", "Unauthorized")
		return
	}

	id := ctx.Param("id")

	var req event.UpdateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	fields, fieldErrs := cleanFields(req.Fields())
	if len(fieldErrs) > 0 {
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": fieldErrs})
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	updated, err := h.repo.Update(cctx, id, fields)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondErr(ctx, h.log, err, "Failed to update event")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *EventsHandler) DeleteEvent(ctx *gin.Context) {
	if _, ok := middlewares.IdentityFromContext(ctx); !ok {
		RespondUnauthorized(ctx, "unauthorized", "Unauthorized")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event not found")
			return
		}
		RespondErr(ctx, h.log, err, "Failed to delete event")
		return
	}

	ctx.Status(http.StatusNoContent)
}
