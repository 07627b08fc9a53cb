package server

import (
	"io"
	"log/slog"
	"strings"

	"handbook/internal/middleware"
	"handbook/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondError writes err as the standard error body. Internal errors are
// logged; their details are only exposed outside production.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	appErr := models.AsAppError(err)
	status := appErr.Status()

	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), appErr.Message,
			slog.String("path", c.Path()),
			slog.Any("error", appErr.Err))
		if s.config.IsProduction() {
			appErr = &models.AppError{Code: appErr.Code, Message: appErr.Message}
		}
	}
	return models.RespondWithError(c, status, appErr)
}

// invalidBody answers a request whose body could not be decoded.
func (s *Server) invalidBody(c *fiber.Ctx) error {
	return s.respondError(c, models.NewValidationError("Invalid request body"))
}

// optionalString maps an empty form value to nil.
func optionalString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// readUpload returns the bytes of the named multipart file, or nil when the
// request carries none.
func readUpload(c *fiber.Ctx, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		// Not multipart, or no such part.
		return nil, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, models.NewInternalError("Failed to read upload", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewInternalError("Failed to read upload", err)
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	return data, nil
}
