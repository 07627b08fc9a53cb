package repository

import (
	"context"
	"testing"
	"time"

	"handbook/internal/database"
	"handbook/internal/models"
	"handbook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(id, category, location string, start time.Time) *models.Event {
	return &models.Event{
		ID:        id,
		Title:     "Event " + id,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Location:  location,
		Category:  category,
		Color:     "#FF6B6B",
	}
}

func TestEventRepository_CreateAndFilter(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	repo := NewEventRepository(store)
	ctx := context.Background()

	base := time.Date(2025, time.January, 10, 18, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newEvent("evt_3", "music", "Washington DC", base.Add(48*time.Hour))))
	require.NoError(t, repo.Create(ctx, newEvent("evt_1", "culture", "Silver Spring, MD", base)))
	require.NoError(t, repo.Create(ctx, newEvent("evt_2", "music", "Arlington, VA", base.Add(24*time.Hour))))

	tests := []struct {
		name   string
		filter models.EventFilter
		want   []string
	}{
		{name: "no filter orders by start", want: []string{"evt_1", "evt_2", "evt_3"}},
		{name: "category", filter: models.EventFilter{Category: "music"}, want: []string{"evt_2", "evt_3"}},
		{name: "location substring", filter: models.EventFilter{Location: "Spring"}, want: []string{"evt_1"}},
		{
			name:   "date range",
			filter: models.EventFilter{StartDate: timePtr(base.Add(time.Hour)), EndDate: timePtr(base.Add(27 * time.Hour))},
			want:   []string{"evt_2"},
		},
		{
			name:   "conjunctive",
			filter: models.EventFilter{Category: "music", Location: "DC"},
			want:   []string{"evt_3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]string, 0, len(events))
			for _, e := range events {
				got = append(got, e.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	event, err := repo.GetByID(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, event.StartTime.Equal(base))
}

func TestEventRepository_DuplicateID(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	repo := NewEventRepository(store)
	ctx := context.Background()
	start := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newEvent("evt_1", "culture", "DC", start)))
	err := repo.Create(ctx, newEvent("evt_1", "culture", "DC", start))
	assert.True(t, database.IsUniqueViolation(err))
}

func TestEventRepository_UpdateMerges(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	repo := NewEventRepository(store)
	ctx := context.Background()
	start := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

	event := newEvent("evt_1", "culture", "DC", start)
	event.Description = strPtr("original")
	event.ImageURL = strPtr("/a.png")
	require.NoError(t, repo.Create(ctx, event))

	updated, err := repo.Update(ctx, "evt_1", models.EventPatch{
		Title:       strPtr("Renamed"),
		Description: models.Optional[string]{Set: true, Value: nil},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Nil(t, updated.Description)
	assert.Equal(t, "/a.png", *updated.ImageURL)
	assert.Equal(t, "DC", updated.Location)
	assert.True(t, updated.StartTime.Equal(start))

	updated, err = repo.Update(ctx, "evt_1", models.EventPatch{ImageURL: models.Optional[string]{Set: true, Value: strPtr("")}})
	require.NoError(t, err)
	assert.Equal(t, "", *updated.ImageURL)
	assert.Equal(t, "Renamed", updated.Title)

	_, err = repo.Update(ctx, "missing", models.EventPatch{})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestEventRepository_Delete(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	repo := NewEventRepository(store)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newEvent("evt_1", "culture", "DC", time.Now())))

	require.NoError(t, repo.Delete(ctx, "evt_1"))
	err := repo.Delete(ctx, "evt_1")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func timePtr(t time.Time) *time.Time { return &t }
