package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/http/handlers"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/geocoder89/eventloop/internal/security"
)

type fakeUsersRepo struct {
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	createFn     func(ctx context.Context, p user.CreateParams) (user.User, error)
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) Create(ctx context.Context, p user.CreateParams) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}
	return user.New(p), nil
}

const validRegisterBody = `{"name":"Ada Lovelace","email":" Ada@Example.com ","password":"Passw0rd!"}`

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeUsersRepo)
		wantStatusCode int
		wantCode       string
	}{
		{
			name: "created",
			body: validRegisterBody,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, p user.CreateParams) (user.User, error) {
					if p.Email != "ada@example.com" {
						return user.User{}, errors.New("email not normalised: " + p.Email)
					}
					if p.Role != user.RoleUser {
						return user.User{}, errors.New("new accounts must be regular users")
					}
					if security.CheckPassword(p.PasswordHash, "Passw0rd!") != nil {
						return user.User{}, errors.New("password not hashed")
					}
					return user.New(p), nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "email already registered",
			body: validRegisterBody,
			repoSetUp: func(f *fakeUsersRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{ID: "u1", Email: email}, nil
				}
			},
			wantStatusCode: http.StatusConflict,
			wantCode:       "email_taken",
		},
		{
			name: "lost the insert race",
			body: validRegisterBody,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, p user.CreateParams) (user.User, error) {
					return user.User{}, user.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusConflict,
			wantCode:       "email_taken",
		},
		{
			name:           "weak password",
			body:           `{"name":"Ada","email":"ada@example.com","password":"password"}`,
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "invalid_request",
		},
		{
			name:           "short name",
			body:           `{"name":"A","email":"ada@example.com","password":"Passw0rd!"}`,
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "invalid_request",
		},
		{
			name:           "invalid email",
			body:           `{"name":"Ada","email":"nope","password":"Passw0rd!"}`,
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "invalid_request",
		},
		{
			name: "lookup failure is generic",
			body: validRegisterBody,
			repoSetUp: func(f *fakeUsersRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, errors.New("connection reset")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
			wantCode:       "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}
			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			h := handlers.NewUsersHandler(repo, observability.NewDiscardLogger(), time.Second)
			r := setupRouter(http.MethodPost, "/api/users/register", nil, h.Register)
			w := doJSON(r, http.MethodPost, "/api/users/register", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("expected status %d, got %d, body=%s", tt.wantStatusCode, w.Code, w.Body.String())
			}

			if tt.wantCode != "" {
				if got := errorCode(t, w); got != tt.wantCode {
					t.Fatalf("expected code %q, got %q", tt.wantCode, got)
				}
				if strings.Contains(w.Body.String(), "connection reset") {
					t.Fatalf("internal error leaked: %s", w.Body.String())
				}
				return
			}

			var got map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			for _, k := range []string{"id", "name", "email", "role", "createdAt"} {
				if _, ok := got[k]; !ok {
					t.Fatalf("missing %q in %s", k, w.Body.String())
				}
			}
			if _, ok := got["passwordHash"]; ok {
				t.Fatal("password hash must never be returned")
			}
		})
	}
}
