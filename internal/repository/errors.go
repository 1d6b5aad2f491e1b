package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record modified concurrently")
)

const (
	pgSerializationFailure = "40001"
	pgUniqueViolation      = "23505"
)

// mapError turns driver errors the callers branch on into package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgUniqueViolation:
			return errors.Join(ErrVersionConflict, err)
		}
	}
	return err
}
