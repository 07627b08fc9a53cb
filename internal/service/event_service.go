package service

import (
	"context"
	"time"

	"handbook/internal/database"
	"handbook/internal/models"
	"handbook/internal/repository"
	"handbook/internal/validation"
)

// EventService manages the events directory.
type EventService struct {
	eventRepo repository.EventRepository
}

// CreateEventInput carries a new event as received from clients; times are
// unparsed timestamp strings.
type CreateEventInput struct {
	ID          string
	Title       string
	Description *string
	StartTime   string
	EndTime     string
	Location    string
	Category    string
	Color       string
	ImageURL    *string
}

// UpdateEventInput is a partial update. Nil pointers leave fields unchanged.
type UpdateEventInput struct {
	Title       *string
	Description models.Optional[string]
	StartTime   *string
	EndTime     *string
	Location    *string
	Category    *string
	Color       *string
	ImageURL    models.Optional[string]
}

func NewEventService(eventRepo repository.EventRepository) *EventService {
	return &EventService{eventRepo: eventRepo}
}

func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, models.NewInternalError("Failed to fetch events", err)
	}
	return events, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	return event, wrapErr(err, "Failed to fetch event")
}

func (s *EventService) Create(ctx context.Context, in CreateEventInput) (*models.Event, error) {
	if validation.AnyBlank(in.ID, in.Title, in.StartTime, in.EndTime, in.Location, in.Category, in.Color) {
		return nil, models.NewValidationError("Missing required fields")
	}
	start, err := parseEventTime("startTime", in.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseEventTime("endTime", in.EndTime)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   start,
		EndTime:     end,
		Location:    in.Location,
		Category:    in.Category,
		Color:       in.Color,
		ImageURL:    in.ImageURL,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, models.NewConflictError("Event with this ID already exists")
		}
		return nil, models.NewInternalError("Failed to create event", err)
	}
	return event, nil
}

func (s *EventService) Update(ctx context.Context, id string, in UpdateEventInput) (*models.Event, error) {
	patch := models.EventPatch{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Category:    in.Category,
		Color:       in.Color,
		ImageURL:    in.ImageURL,
	}
	if in.StartTime != nil && *in.StartTime != "" {
		t, err := parseEventTime("startTime", *in.StartTime)
		if err != nil {
			return nil, err
		}
		patch.StartTime = &t
	}
	if in.EndTime != nil && *in.EndTime != "" {
		t, err := parseEventTime("endTime", *in.EndTime)
		if err != nil {
			return nil, err
		}
		patch.EndTime = &t
	}

	event, err := s.eventRepo.Update(ctx, id, patch)
	return event, wrapErr(err, "Failed to update event")
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	return wrapErr(s.eventRepo.Delete(ctx, id), "Failed to delete event")
}

func parseEventTime(field, raw string) (time.Time, error) {
	t, err := validation.ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, models.NewValidationError("Invalid " + field)
	}
	return t, nil
}
