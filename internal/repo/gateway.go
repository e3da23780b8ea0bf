// Package repo selects the persistence gateway (postgres or memory) from
// configuration and exposes it behind one set of interfaces.
package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/eventloop/internal/config"
	"github.com/geocoder89/eventloop/internal/db"
	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/domain/job"
	"github.com/geocoder89/eventloop/internal/domain/signup"
	"github.com/geocoder89/eventloop/internal/domain/user"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/geocoder89/eventloop/internal/repo/memory"
	"github.com/geocoder89/eventloop/internal/repo/postgres"
)

const (
	KindPostgres = "postgres"
	KindMemory   = "memory"
)

type Users interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
	Upsert(ctx context.Context, p user.CreateParams) (user.User, error)
}

type Events interface {
	List(ctx context.Context) ([]event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	Create(ctx context.Context, creatorID string, f event.Fields) (event.Event, error)
	Update(ctx context.Context, id string, f event.Fields) (event.Event, error)
	Delete(ctx context.Context, id string) error
}

type Signups interface {
	Create(ctx context.Context, eventID, userID string) (signup.SignUp, error)
	Delete(ctx context.Context, eventID, userID string) error
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]signup.WithEvent, error)
	GetByID(ctx context.Context, id string) (signup.SignUp, error)
}

type Jobs interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	RequeueStale(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type Deliveries interface {
	TryStart(ctx context.Context, kind, signupID, jobID, recipient string) error
	MarkSent(ctx context.Context, kind, signupID string, providerMessageID *string) error
	MarkFailed(ctx context.Context, kind, signupID, errMsg string) error
}

type Gateway struct {
	Kind       string
	Users      Users
	Events     Events
	Signups    Signups
	Jobs       Jobs
	Deliveries Deliveries

	ping  func(ctx context.Context) error
	close func()
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.ping(ctx)
}

func (g *Gateway) Close() {
	if g.close != nil {
		g.close()
	}
}

// Open connects to the configured store. Postgres is migrated first when
// AutoMigrate is set.
func Open(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (*Gateway, error) {
	switch cfg.Store {
	case KindMemory:
		return NewMemory(memory.NewStore()), nil

	case KindPostgres, "":
		if cfg.AutoMigrate {
			if err := db.MigrateUp(cfg.DBURL); err != nil {
				return nil, err
			}
			if log != nil {
				log.InfoContext(ctx, "db.migrated")
			}
		}

		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}

		jobsRepo := postgres.NewJobsRepo(pool, prom)
		events := postgres.NewEventsRepo(pool, prom)

		return &Gateway{
			Kind:       KindPostgres,
			Users:      postgres.NewUsersRepo(pool, prom),
			Events:     events,
			Signups:    postgres.NewSignupsRepo(pool, prom, jobsRepo),
			Jobs:       jobsRepo,
			Deliveries: postgres.NewDeliveriesRepo(pool, prom),
			ping:       events.Ping,
			close:      pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown STORE %q (want postgres or memory)", cfg.Store)
	}
}

func NewMemory(store *memory.Store) *Gateway {
	return &Gateway{
		Kind:       KindMemory,
		Users:      store.Users(),
		Events:     store.Events(),
		Signups:    store.Signups(),
		Jobs:       store.Jobs(),
		Deliveries: store.Deliveries(),
		ping:       store.Ping,
	}
}
