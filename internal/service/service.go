// Package service provides application business logic (auth, feed, events, chat).
package service

import (
	"errors"

	"handbook/internal/models"
	"handbook/internal/validation"
)

// wrapErr passes AppErrors through unchanged and wraps everything else as
// an internal error carrying message.
func wrapErr(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(message, err)
}

// checkLength reports an over-long field as a validation error.
func checkLength(field, value string, max int) error {
	if err := validation.CheckLength(field, value, max); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}
