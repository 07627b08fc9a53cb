package server

import (
	"encoding/json"

	"handbook/internal/models"
	"handbook/internal/service"
	"handbook/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type createEventRequest struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Location    string  `json:"location"`
	Category    string  `json:"category"`
	Color       string  `json:"color"`
	ImageURL    *string `json:"imageUrl"`
}

// GetEvents handles GET /api/events
// @Summary List events
// @Description Events ordered by start time. All filters are optional and combine.
// @Tags events
// @Produce json
// @Param category query string false "Category"
// @Param location query string false "Location"
// @Param startDate query string false "Earliest start time"
// @Param endDate query string false "Latest start time"
// @Success 200 {array} models.Event
// @Failure 400 {object} models.ErrorResponse
// @Router /events [get]
func (s *Server) GetEvents(c *fiber.Ctx) error {
	filter := models.EventFilter{
		Category: c.Query("category"),
		Location: c.Query("location"),
	}
	if raw := c.Query("startDate"); raw != "" {
		t, err := validation.ParseTimestamp(raw)
		if err != nil {
			return s.respondError(c, models.NewValidationError("Invalid startDate"))
		}
		filter.StartDate = &t
	}
	if raw := c.Query("endDate"); raw != "" {
		t, err := validation.ParseTimestamp(raw)
		if err != nil {
			return s.respondError(c, models.NewValidationError("Invalid endDate"))
		}
		filter.EndDate = &t
	}

	events, err := s.eventService.List(c.UserContext(), filter)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(events)
}

// GetEvent handles GET /api/events/:id
// @Summary Get event
// @Tags events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} models.Event
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [get]
func (s *Server) GetEvent(c *fiber.Ctx) error {
	event, err := s.eventService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(event)
}

// CreateEvent handles POST /api/events
// @Summary Create event
// @Tags events
// @Accept json
// @Produce json
// @Param request body createEventRequest true "Event"
// @Success 201 {object} models.Event
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /events [post]
func (s *Server) CreateEvent(c *fiber.Ctx) error {
	var req createEventRequest
	if err := c.BodyParser(&req); err != nil {
		return s.invalidBody(c)
	}

	event, err := s.eventService.Create(c.UserContext(), service.CreateEventInput{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		Category:    req.Category,
		Color:       req.Color,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// UpdateEvent handles PUT /api/events/:id
// @Summary Update event
// @Description Partial update. Omitted or empty fields keep their value; description and imageUrl may be set to null.
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} models.Event
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [put]
func (s *Server) UpdateEvent(c *fiber.Ctx) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return s.invalidBody(c)
	}

	var in service.UpdateEventInput
	var err error
	fields := []struct {
		key string
		dst **string
	}{
		{"title", &in.Title},
		{"startTime", &in.StartTime},
		{"endTime", &in.EndTime},
		{"location", &in.Location},
		{"category", &in.Category},
		{"color", &in.Color},
	}
	for _, f := range fields {
		if *f.dst, err = nonEmptyField(raw, f.key); err != nil {
			return s.invalidBody(c)
		}
	}
	if in.Description, err = optionalField(raw, "description"); err != nil {
		return s.invalidBody(c)
	}
	if in.ImageURL, err = optionalField(raw, "imageUrl"); err != nil {
		return s.invalidBody(c)
	}

	event, err := s.eventService.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(event)
}

// DeleteEvent handles DELETE /api/events/:id
// @Summary Delete event
// @Tags events
// @Param id path string true "Event ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [delete]
func (s *Server) DeleteEvent(c *fiber.Ctx) error {
	if err := s.eventService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// nonEmptyField reads a string that only counts when present and non-empty.
func nonEmptyField(raw map[string]json.RawMessage, key string) (*string, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	var s *string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, err
	}
	if s == nil || *s == "" {
		return nil, nil
	}
	return s, nil
}

// optionalField distinguishes an absent key from an explicit value or null.
func optionalField(raw map[string]json.RawMessage, key string) (models.Optional[string], error) {
	v, ok := raw[key]
	if !ok {
		return models.Optional[string]{}, nil
	}
	var s *string
	if err := json.Unmarshal(v, &s); err != nil {
		return models.Optional[string]{}, err
	}
	return models.Optional[string]{Set: true, Value: s}, nil
}
