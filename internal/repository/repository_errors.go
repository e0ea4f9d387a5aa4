package repository

import (
	"errors"
	"fmt"
)

var ErrLessonNotFound = errors.New("lesson not found")
var ErrInsufficientSpace = errors.New("insufficient space")
var ErrOrderNotFound = errors.New("order not found")

// ErrStoreUnavailable wraps any failure of the backing store itself
// (connection, timeout, driver error).
var ErrStoreUnavailable = errors.New("store unavailable")

func unavailable(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
