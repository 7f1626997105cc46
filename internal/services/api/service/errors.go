package service

import (
	"errors"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
)

// notFound replaces storage.ErrNotFound with a specific domain error.
func notFound(err error, code apperrors.Code, message string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(code, message)
	}
	return err
}
