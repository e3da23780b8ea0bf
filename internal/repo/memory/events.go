package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/geocoder89/eventloop/internal/domain/event"
)

var ErrUnknownCreator = errors.New("event creator does not exist")

type EventsRepo struct {
	s *Store
}

// withCreator attaches the creator's name. Callers hold the lock.
func (r *EventsRepo) withCreator(e event.Event) event.Event {
	if u, ok := r.s.users[e.CreatorID]; ok {
		e.Creator = &event.Creator{Name: u.Name}
	}
	return e
}

func (r *EventsRepo) List(ctx context.Context) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]event.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		items = append(items, r.withCreator(e))
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].StartTime.Equal(items[j].StartTime) {
			return items[i].StartTime.Before(items[j].StartTime)
		}
		return items[i].ID < items[j].ID
	})

	return items, nil
}

func (r *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	return r.withCreator(e), nil
}

func (r *EventsRepo) Create(ctx context.Context, creatorID string, f event.Fields) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if err := f.Validate(); err != nil {
		return event.Event{}, err
	}

	e := event.New(creatorID, f)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	creator, ok := r.s.users[creatorID]
	if !ok {
		return event.Event{}, ErrUnknownCreator
	}

	r.s.events[e.ID] = e

	e.Creator = &event.Creator{Name: creator.Name, Email: creator.Email}
	return e, nil
}

func (r *EventsRepo) Update(ctx context.Context, id string, f event.Fields) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if err := f.Validate(); err != nil {
		return event.Event{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.events[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	next := cur.Apply(f)
	r.s.events[id] = next
	return r.withCreator(next), nil
}

// Delete removes the event and cascades its sign-ups.
func (r *EventsRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[id]; !ok {
		return event.ErrNotFound
	}

	delete(r.s.events, id)
	for k := range r.s.signups {
		if k.eventID == id {
			delete(r.s.signups, k)
		}
	}
	return nil
}
