package repository

import (
	"context"
	"strings"

	"handbook/internal/database"
	"handbook/internal/models"
)

const eventColumns = "id, title, description, start_time, end_time, location, category, color, image_url, created_at, updated_at"

// EventRepository defines persistence operations for the events directory.
type EventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, id string, patch models.EventPatch) (*models.Event, error)
	Delete(ctx context.Context, id string) error
}

type eventRepository struct {
	db database.Store
}

// NewEventRepository returns a new EventRepository implementation.
func NewEventRepository(db database.Store) EventRepository {
	return &eventRepository{db: db}
}

// List applies every non-empty filter conjunctively: exact category,
// location substring, start_time >= StartDate and end_time <= EndDate.
func (r *eventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Location != "" {
		where = append(where, "location LIKE ?")
		args = append(args, "%"+filter.Location+"%")
	}
	if filter.StartDate != nil {
		where = append(where, "start_time >= ?")
		args = append(args, database.CeilTimeArg(r.db.Dialect(), *filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "end_time <= ?")
		args = append(args, database.TimeArg(r.db.Dialect(), *filter.EndDate))
	}

	query := "SELECT " + eventColumns + " FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time ASC"

	rows, err := r.db.All(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, *eventFromRow(row))
	}
	return events, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	row, found, err := r.db.Get(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, models.NewNotFoundError("Event")
	}
	return eventFromRow(row), nil
}

// Create inserts the event and reloads the stored row into event.
// A duplicate id surfaces as the backend's unique violation.
func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	_, err := r.db.Run(ctx,
		`INSERT INTO events (id, title, description, start_time, end_time, location, category, color, image_url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		event.ID, event.Title, event.Description, database.TimeArg(r.db.Dialect(), event.StartTime), database.TimeArg(r.db.Dialect(), event.EndTime),
		event.Location, event.Category, event.Color, event.ImageURL,
	)
	if err != nil {
		return err
	}

	stored, err := r.GetByID(ctx, event.ID)
	if err != nil {
		return err
	}
	*event = *stored
	return nil
}

// Update merges patch over the stored event. Fields absent from the patch keep their value.
func (r *eventRepository) Update(ctx context.Context, id string, patch models.EventPatch) (*models.Event, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if patch.Title != nil && *patch.Title != "" {
		merged.Title = *patch.Title
	}
	if patch.Description.Set {
		merged.Description = patch.Description.Value
	}
	if patch.StartTime != nil {
		merged.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		merged.EndTime = *patch.EndTime
	}
	if patch.Location != nil && *patch.Location != "" {
		merged.Location = *patch.Location
	}
	if patch.Category != nil && *patch.Category != "" {
		merged.Category = *patch.Category
	}
	if patch.Color != nil && *patch.Color != "" {
		merged.Color = *patch.Color
	}
	if patch.ImageURL.Set {
		merged.ImageURL = patch.ImageURL.Value
	}

	_, err = r.db.Run(ctx,
		`UPDATE events
		 SET title = ?, description = ?, start_time = ?, end_time = ?, location = ?, category = ?, color = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		merged.Title, merged.Description, database.TimeArg(r.db.Dialect(), merged.StartTime), database.TimeArg(r.db.Dialect(), merged.EndTime),
		merged.Location, merged.Category, merged.Color, merged.ImageURL, id,
	)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Run(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return err
	}
	if res.Affected == 0 {
		return models.NewNotFoundError("Event")
	}
	return nil
}

func eventFromRow(row database.Row) *models.Event {
	return &models.Event{
		ID:          row.String("id"),
		Title:       row.String("title"),
		Description: stringPtr(row.NullString("description")),
		StartTime:   row.Time("start_time"),
		EndTime:     row.Time("end_time"),
		Location:    row.String("location"),
		Category:    row.String("category"),
		Color:       row.String("color"),
		ImageURL:    stringPtr(row.NullString("image_url")),
		CreatedAt:   row.Time("created_at"),
		UpdatedAt:   row.Time("updated_at"),
	}
}

