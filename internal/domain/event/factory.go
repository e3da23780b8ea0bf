package event

import (
	"time"

	"github.com/google/uuid"
)

func New(creatorID string, f Fields) Event {
	now := time.Now().UTC()

	return Event{
		ID:          uuid.NewString(),
		Title:       f.Title,
		Description: f.Description,
		StartTime:   f.StartTime,
		EndTime:     f.EndTime,
		Location:    f.Location,
		ImageURL:    f.ImageURL,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Apply overwrites the mutable fields; id, creator and createdAt survive.
func (e Event) Apply(f Fields) Event {
	e.Title = f.Title
	e.Description = f.Description
	e.StartTime = f.StartTime
	e.EndTime = f.EndTime
	e.Location = f.Location
	e.ImageURL = f.ImageURL
	e.UpdatedAt = time.Now().UTC()
	return e
}

func (e Event) Summary() Summary {
	return Summary{
		ID:          e.ID,
		Title:       e.Title,
		StartTime:   e.StartTime,
		Location:    e.Location,
		Description: e.Description,
	}
}
