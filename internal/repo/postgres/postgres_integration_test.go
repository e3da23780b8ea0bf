//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/eventloop/internal/db"
	"github.com/geocoder89/eventloop/internal/domain/delivery"
	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/domain/job"
	"github.com/geocoder89/eventloop/internal/domain/signup"
	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/jobs"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type testRepos struct {
	users      *UsersRepo
	events     *EventsRepo
	signups    *SignupsRepo
	jobs       *JobsRepo
	deliveries *DeliveriesRepo
}

func setupRepos(t *testing.T) (context.Context, testRepos) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := tcpostgres.Run(
		ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("eventloop"),
		tcpostgres.WithUsername("eventloop"),
		tcpostgres.WithPassword("eventloop"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, migrateWithRetry(dbURL, 15*time.Second))

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	prom := observability.NewProm(prometheus.NewRegistry())
	jobsRepo := NewJobsRepo(pool, prom)

	return ctx, testRepos{
		users:      NewUsersRepo(pool, prom),
		events:     NewEventsRepo(pool, prom),
		signups:    NewSignupsRepo(pool, prom, jobsRepo),
		jobs:       jobsRepo,
		deliveries: NewDeliveriesRepo(pool, prom),
	}
}

// the container accepts connections a moment before it is usable
func migrateWithRetry(dbURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := db.MigrateUp(dbURL)
		if err == nil || time.Now().After(deadline) {
			return err
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func newEventFields(title string, start time.Time) event.Fields {
	loc := "Hall A"
	return event.Fields{
		Title:       title,
		Description: "<p>hello</p>",
		StartTime:   start.UTC().Truncate(time.Microsecond),
		EndTime:     start.Add(2 * time.Hour).UTC().Truncate(time.Microsecond),
		Location:    &loc,
	}
}

func TestPostgresRepos(t *testing.T) {
	ctx, r := setupRepos(t)

	staff, err := r.users.Create(ctx, user.CreateParams{Email: "admin@eventloop.com", Name: "Admin User", PasswordHash: "x", Role: user.RoleStaff})
	require.NoError(t, err)
	member, err := r.users.Create(ctx, user.CreateParams{Email: "user@example.com", Name: "Regular User", PasswordHash: "y"})
	require.NoError(t, err)

	t.Run("users", func(t *testing.T) {
		_, err := r.users.Create(ctx, user.CreateParams{Email: "USER@example.com", Name: "Dup"})
		assert.ErrorIs(t, err, user.ErrEmailTaken)

		got, err := r.users.GetByEmail(ctx, "user@example.com")
		require.NoError(t, err)
		assert.Equal(t, member.ID, got.ID)
		assert.Equal(t, user.RoleUser, got.Role)

		_, err = r.users.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, user.ErrNotFound)

		up, err := r.users.Upsert(ctx, user.CreateParams{Email: "admin@eventloop.com", Name: "Admin", PasswordHash: "z", Role: user.RoleStaff})
		require.NoError(t, err)
		assert.Equal(t, staff.ID, up.ID)
		assert.Equal(t, "Admin", up.Name)
	})

	base := time.Now().Add(24 * time.Hour)
	later, err := r.events.Create(ctx, staff.ID, newEventFields("Later", base.Add(24*time.Hour)))
	require.NoError(t, err)
	sooner, err := r.events.Create(ctx, staff.ID, newEventFields("Sooner", base))
	require.NoError(t, err)

	t.Run("events", func(t *testing.T) {
		require.NotNil(t, sooner.Creator)
		assert.Equal(t, "admin@eventloop.com", sooner.Creator.Email)

		items, err := r.events.List(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, sooner.ID, items[0].ID)
		assert.Equal(t, later.ID, items[1].ID)

		upd, err := r.events.Update(ctx, later.ID, newEventFields("Later, renamed", base.Add(48*time.Hour)))
		require.NoError(t, err)
		assert.Equal(t, "Later, renamed", upd.Title)
		assert.Equal(t, staff.ID, upd.CreatorID)

		_, err = r.events.Update(ctx, "00000000-0000-0000-0000-000000000000", newEventFields("x", base))
		assert.ErrorIs(t, err, event.ErrNotFound)
		_, err = r.events.GetByID(ctx, "abc")
		assert.ErrorIs(t, err, event.ErrNotFound)
	})

	t.Run("signups", func(t *testing.T) {
		s, err := r.signups.Create(ctx, sooner.ID, member.ID)
		require.NoError(t, err)

		_, err = r.signups.Create(ctx, sooner.ID, member.ID)
		assert.ErrorIs(t, err, signup.ErrAlreadySignedUp)

		_, err = r.signups.Create(ctx, "00000000-0000-0000-0000-000000000000", member.ID)
		assert.ErrorIs(t, err, event.ErrNotFound)

		j, err := r.jobs.GetByIdempotencyKey(ctx, jobs.SignupConfirmationKey(s.ID))
		require.NoError(t, err)
		assert.Equal(t, job.StatusPending, j.Status)

		list, err := r.signups.ListForUser(ctx, member.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Sooner", list[0].Event.Title)

		ok, err := r.signups.Exists(ctx, sooner.ID, member.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, r.signups.Delete(ctx, sooner.ID, member.ID))
		assert.ErrorIs(t, r.signups.Delete(ctx, sooner.ID, member.ID), signup.ErrNotSignedUp)
	})

	t.Run("concurrent sign-ups keep one row", func(t *testing.T) {
		var wg sync.WaitGroup
		var mu sync.Mutex
		ok := 0

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := r.signups.Create(ctx, later.ID, member.ID); err == nil {
					mu.Lock()
					ok++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, ok)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, r.events.Delete(ctx, later.ID))
		assert.ErrorIs(t, r.events.Delete(ctx, later.ID), event.ErrNotFound)

		exists, err := r.signups.Exists(ctx, later.ID, member.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("jobs and deliveries", func(t *testing.T) {
		// drain sign-up jobs created above
		for {
			j, err := r.jobs.ClaimNext(ctx, "test")
			if err != nil {
				assert.ErrorIs(t, err, job.ErrJobNotFound)
				break
			}
			require.NoError(t, r.jobs.MarkDone(ctx, j.ID))
		}

		d := r.deliveries
		require.NoError(t, d.TryStart(ctx, delivery.KindSignupConfirmation, sooner.ID, sooner.ID, "a@b.com"))
		assert.ErrorIs(t, d.TryStart(ctx, delivery.KindSignupConfirmation, sooner.ID, sooner.ID, "a@b.com"), delivery.ErrInProgress)
		require.NoError(t, d.MarkSent(ctx, delivery.KindSignupConfirmation, sooner.ID, nil))
		assert.ErrorIs(t, d.TryStart(ctx, delivery.KindSignupConfirmation, sooner.ID, sooner.ID, "a@b.com"), delivery.ErrAlreadySent)
	})
}
