package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// uniqueConstraintFields maps unique constraints to the request field they guard.
var uniqueConstraintFields = map[string]string{
	"accounts_username_key":            "username",
	"accounts_email_lower_key":         "email",
	"departments_name_key":             "name",
	"employee_profiles_account_id_key": "account_id",
}

// DuplicateError reports a unique constraint violation on Field.
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// ErrMissingReference is returned when a foreign key points at a missing row.
var ErrMissingReference = errors.New("referenced row does not exist")

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		field, ok := uniqueConstraintFields[pgErr.ConstraintName]
		if !ok {
			field = pgErr.ConstraintName
		}
		return &DuplicateError{Field: field, Err: err}
	case foreignKeyViolationCode:
		return fmt.Errorf("%w: %s", ErrMissingReference, pgErr.ConstraintName)
	}
	return err
}
