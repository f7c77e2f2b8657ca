package service

import (
	"errors"

	"github.com/legal-ai/legal-assistant/internal/storage"
)

var (
	// ErrNotFound is returned when a conversation does not exist for the user.
	ErrNotFound = storage.ErrNotFound
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
