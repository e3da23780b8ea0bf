package memory

import (
	"context"
	"time"

	"github.com/geocoder89/eventloop/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usersByEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.s.users[id], nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, p user.CreateParams) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	u := user.New(p)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.usersByEmail[u.Email]; taken {
		return user.User{}, user.ErrEmailTaken
	}

	r.s.users[u.ID] = u
	r.s.usersByEmail[u.Email] = u.ID
	return u, nil
}

func (r *UsersRepo) Upsert(ctx context.Context, p user.CreateParams) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}

	fresh := user.New(p)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id, ok := r.s.usersByEmail[fresh.Email]; ok {
		u := r.s.users[id]
		u.Name = fresh.Name
		u.PasswordHash = fresh.PasswordHash
		u.Role = fresh.Role
		u.UpdatedAt = time.Now().UTC()
		r.s.users[id] = u
		return u, nil
	}

	r.s.users[fresh.ID] = fresh
	r.s.usersByEmail[fresh.Email] = fresh.ID
	return fresh, nil
}
