package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// mapError converts PostgreSQL errors into model sentinels so callers can use
// errors.Is. Anything unrecognised is returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23505": // unique_violation
		return fmt.Errorf("%w: %w", models.ErrAlreadyExists, err)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	case "23514", "22007", "22008", "22P02": // check_violation, bad dates, bad uuid text
		return fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	return err
}
