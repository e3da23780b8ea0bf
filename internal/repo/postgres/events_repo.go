package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/eventloop/internal/domain/event"
	"github.com/geocoder89/eventloop/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `e.id, e.title, e.description, e.start_time, e.end_time, e.location, e.image_url, e.creator_id, e.created_at, e.updated_at`

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{pool: pool, prom: prom}
}

func scanEvent(row pgx.Row, extra ...any) (event.Event, error) {
	var e event.Event

	dest := []any{
		&e.ID, &e.Title, &e.Description,
		&e.StartTime, &e.EndTime,
		&e.Location, &e.ImageURL,
		&e.CreatorID, &e.CreatedAt, &e.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

// List returns every event ordered by start time, oldest first, with the
// creator's name.
func (r *EventsRepo) List(ctx context.Context) ([]event.Event, error) {
	items := make([]event.Event, 0)

	err := r.prom.ObserveDB("events.list", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT `+eventColumns+`, u.name
			FROM events e
			JOIN users u ON u.id = e.creator_id
			ORDER BY e.start_time ASC, e.id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			e, err := scanEvent(rows, &name)
			if err != nil {
				return err
			}
			e.Creator = &event.Creator{Name: name}
			items = append(items, e)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	if !validID(id) {
		return event.Event{}, event.ErrNotFound
	}

	var e event.Event
	var err error

	err = r.prom.ObserveDB("events.get_by_id", func() error {
		var name string
		e, err = scanEvent(r.pool.QueryRow(ctx, `
			SELECT `+eventColumns+`, u.name
			FROM events e
			JOIN users u ON u.id = e.creator_id
			WHERE e.id = $1
		`, id), &name)
		if err == nil {
			e.Creator = &event.Creator{Name: name}
		}
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}
	return e, nil
}

// Create inserts the event and returns it with the creator's name and email.
func (r *EventsRepo) Create(ctx context.Context, creatorID string, f event.Fields) (event.Event, error) {
	e := event.New(creatorID, f)

	var name, email string
	var err error

	err = r.prom.ObserveDB("events.create", func() error {
		var out event.Event
		out, err = scanEvent(r.pool.QueryRow(ctx, `
			WITH e AS (
				INSERT INTO events (id, title, description, start_time, end_time, location, image_url, creator_id, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
				RETURNING *
			)
			SELECT `+eventColumns+`, u.name, u.email
			FROM e
			JOIN users u ON u.id = e.creator_id
		`, e.ID, e.Title, e.Description, e.StartTime, e.EndTime, e.Location, e.ImageURL, e.CreatorID, e.CreatedAt, e.UpdatedAt),
			&name, &email)
		if err == nil {
			e = out
		}
		return err
	})

	if err != nil {
		return event.Event{}, err
	}

	e.Creator = &event.Creator{Name: name, Email: email}
	return e, nil
}

// Update replaces the mutable fields. creator_id is never touched.
func (r *EventsRepo) Update(ctx context.Context, id string, f event.Fields) (event.Event, error) {
	if !validID(id) {
		return event.Event{}, event.ErrNotFound
	}

	var e event.Event
	var err error

	err = r.prom.ObserveDB("events.update", func() error {
		var name string
		e, err = scanEvent(r.pool.QueryRow(ctx, `
			WITH e AS (
				UPDATE events
				SET title = $2,
				    description = $3,
				    start_time = $4,
				    end_time = $5,
				    location = $6,
				    image_url = $7,
				    updated_at = NOW()
				WHERE id = $1
				RETURNING *
			)
			SELECT `+eventColumns+`, u.name
			FROM e
			JOIN users u ON u.id = e.creator_id
		`, id, f.Title, f.Description, f.StartTime, f.EndTime, f.Location, f.ImageURL), &name)
		if err == nil {
			e.Creator = &event.Creator{Name: name}
		}
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}
	return e, nil
}

// Delete removes the event. Sign-ups go with it (ON DELETE CASCADE).
func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return event.ErrNotFound
	}

	var tag pgconn.CommandTag
	var err error

	err = r.prom.ObserveDB("events.delete", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return event.ErrNotFound
	}
	return nil
}

func (r *EventsRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
