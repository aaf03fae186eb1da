package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolationCode is SQLSTATE 23505 ("unique_violation").
const pgUniqueViolationCode = "23505"

// pgUniqueViolation unwraps err looking for a pgconn.PgError with the
// unique_violation SQLSTATE — the signal the resolver's find-or-create
// retry loop (spec.md §4.3) watches for.
func pgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	return false
}
