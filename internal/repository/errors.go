package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict is returned when a conditional write matched no row because
	// the row changed state after it was read.
	ErrConflict = errors.New("concurrent update detected")
)

// translate maps driver errors onto the package sentinels. The gorm config
// must enable TranslateError for duplicate detection to work.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	}
	return err
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
