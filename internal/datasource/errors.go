package datasource

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// IsPermanentConnectError reports whether err is a PostgreSQL error that
// retrying the connection won't fix: rejected credentials (SQLSTATE class 28)
// or a database that doesn't exist (3D000).
func IsPermanentConnectError(err error) bool {
	var code string
	var pgErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgErr):
		code = pgErr.Code
	case errors.As(err, &pqErr):
		code = string(pqErr.Code)
	default:
		return false
	}
	return pgerrcode.IsInvalidAuthorizationSpecification(code) ||
		code == pgerrcode.InvalidCatalogName
}
