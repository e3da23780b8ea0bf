package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"

	constraintSignupUnique = "event_signups_event_user_uniq"
	constraintUsersEmail   = "users_email_uniq"
)

func pgCode(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func IsUniqueViolation(err error) bool {
	pgErr, ok := pgCode(err)
	return ok && pgErr.Code == codeUniqueViolation
}

// isConstraintViolation matches a specific unique constraint. An empty
// constraint name on the error (older servers, proxies) still matches.
func isConstraintViolation(err error, constraint string) bool {
	pgErr, ok := pgCode(err)
	if !ok || pgErr.Code != codeUniqueViolation {
		return false
	}
	return pgErr.ConstraintName == "" || pgErr.ConstraintName == constraint
}

func IsForeignKeyViolation(err error) bool {
	pgErr, ok := pgCode(err)
	return ok && pgErr.Code == codeForeignKeyViolation
}

// validID filters ids that cannot be a uuid column value so lookups for
// garbage ids read as "not found" instead of a cast error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
