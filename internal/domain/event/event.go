package event

import (
	"errors"
	"time"
)

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Location    *string   `json:"location"`
	ImageURL    *string   `json:"imageUrl"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Creator     *Creator  `json:"creator,omitempty"`
}

// Creator is the owning user as exposed next to an event. Email is only
// filled in on the create response.
type Creator struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Summary is the slice of an event nested under a user's sign-ups.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	StartTime   time.Time `json:"startTime"`
	Location    *string   `json:"location"`
	Description string    `json:"description"`
}

var (
	ErrNotFound         = errors.New("event not found")
	ErrInvalidTimeRange = errors.New("end time must be after start time")
)

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,min=3,max=200"`
	Description *string   `json:"description" binding:"required,max=5000"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	EndTime     time.Time `json:"endTime" binding:"required,gtfield=StartTime"`
	Location    *string   `json:"location" binding:"omitempty,max=200"`
	ImageURL    *string   `json:"imageUrl" binding:"omitempty,url,max=2048"`
}

// UpdateEventRequest is a full replacement of the mutable fields. The
// creator is never part of it.
type UpdateEventRequest CreateEventRequest

// Fields are the mutable columns shared by create and update.
type Fields struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Location    *string
	ImageURL    *string
}

func (r CreateEventRequest) Fields() Fields {
	desc := ""
	if r.Description != nil {
		desc = *r.Description
	}

	return Fields{
		Title:       r.Title,
		Description: desc,
		StartTime:   r.StartTime.UTC(),
		EndTime:     r.EndTime.UTC(),
		Location:    r.Location,
		ImageURL:    r.ImageURL,
	}
}

func (r UpdateEventRequest) Fields() Fields {
	return CreateEventRequest(r).Fields()
}

func (f Fields) Validate() error {
	if !f.EndTime.After(f.StartTime) {
		return ErrInvalidTimeRange
	}
	return nil
}
