package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/eventloop/internal/config"
	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/sanitize"
	"github.com/geocoder89/eventloop/internal/security"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
}

var errEmailRegistered = NewHTTPError(http.StatusConflict, "email_taken", "Conflict: Email already registered")

type UsersHandler struct {
	users   UsersStore
	log     *slog.Logger
	timeout time.Duration
	hash    func(string) (string, error)
}

func NewUsersHandler(users UsersStore, log *slog.Logger, timeout time.Duration) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{
		users:   users,
		log:     log,
		timeout: timeout,
		hash:    security.HashPassword,
	}
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.register(ctx.Request.Context(), req)
	if err != nil {
		RespondErr(ctx, h.log, err, "Could not register user at this time.")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "user.registered", "user_id", u.ID)

	ctx.JSON(http.StatusCreated, u.Public())
}

func (h *UsersHandler) register(ctx context.Context, req user.RegisterRequest) (user.User, error) {
	email := user.NormalizeEmail(req.Email)

	name := sanitize.Text(req.Name)
	if len([]rune(strings.TrimSpace(name))) < 2 {
		return user.User{}, NewHTTPError(http.StatusBadRequest, "invalid_request", "Name must be at least 2 characters")
	}

	cctx, cancel := config.WithTimeout(ctx, h.timeout)
	defer cancel()

	_, err := h.users.GetByEmail(cctx, email)
	switch {
	case err == nil:
		return user.User{}, errEmailRegistered
	case !errors.Is(err, user.ErrNotFound):
		return user.User{}, err
	}

	hash, err := h.hash(req.Password)
	if err != nil {
		return user.User{}, err
	}

	// hashing is slow; give the insert its own budget
	wctx, wcancel := config.WithTimeout(ctx, h.timeout)
	defer wcancel()

	u, err := h.users.Create(wctx, user.CreateParams{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         user.RoleUser,
	})
	if err != nil {
		// lost the race against a concurrent registration
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, errEmailRegistered
		}
		return user.User{}, err
	}

	return u, nil
}
