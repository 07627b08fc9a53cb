package service

import (
	"context"
	"testing"

	"handbook/internal/models"
	"handbook/internal/repository"
	"handbook/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent(id string) CreateEventInput {
	return CreateEventInput{
		ID:        id,
		Title:     "Timkat Celebration",
		StartTime: "2025-01-19T10:00:00Z",
		EndTime:   "2025-01-19 16:00:00",
		Location:  "Washington, DC",
		Category:  "Cultural",
		Color:     "#FFD700",
	}
}

func TestEventService_Create(t *testing.T) {
	svc := NewEventService(repository.NewEventRepository(testutil.NewSQLiteStore(t)))
	ctx := context.Background()

	event, err := svc.Create(ctx, validEvent("timkat"))
	require.NoError(t, err)
	assert.Equal(t, 16, event.EndTime.Hour())

	_, err = svc.Create(ctx, validEvent("timkat"))
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, "Event with this ID already exists", models.AsAppError(err).Message)

	missing := validEvent("x")
	missing.Color = ""
	_, err = svc.Create(ctx, missing)
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Equal(t, "Missing required fields", models.AsAppError(err).Message)

	badTime := validEvent("y")
	badTime.StartTime = "next tuesday"
	_, err = svc.Create(ctx, badTime)
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestEventService_UpdateAndDelete(t *testing.T) {
	svc := NewEventService(repository.NewEventRepository(testutil.NewSQLiteStore(t)))
	ctx := context.Background()

	_, err := svc.Create(ctx, validEvent("timkat"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "timkat", UpdateEventInput{
		Location:    strPtr("Seattle, WA"),
		Description: models.Optional[string]{Set: true, Value: strPtr("")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Seattle, WA", updated.Location)
	assert.Equal(t, "Timkat Celebration", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "", *updated.Description)

	_, err = svc.Update(ctx, "timkat", UpdateEventInput{EndTime: strPtr("garbage")})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = svc.Update(ctx, "nope", UpdateEventInput{})
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, "timkat"))
	assert.True(t, models.IsCode(svc.Delete(ctx, "timkat"), models.CodeNotFound))

	_, err = svc.Get(ctx, "timkat")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
