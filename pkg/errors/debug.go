package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Dump flattens an error chain for structured logging, including Postgres
// diagnostics when either the pgx or lib/pq driver produced the error.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if code, constraint, table, detail, message, ok := pgDiagnostics(err); ok {
		d.PGCode = code
		d.PGConstraint = constraint
		d.PGTable = table
		d.PGDetail = detail
		d.PGMessage = message
	}

	return d
}

// IsForeignKeyViolation reports whether err is a Postgres FK violation.
func IsForeignKeyViolation(err error) bool {
	code, _, _, _, _, ok := pgDiagnostics(err)
	return ok && code == pgForeignKeyViolation
}

// IsCheckViolation reports whether err is a Postgres CHECK constraint violation.
func IsCheckViolation(err error) bool {
	code, _, _, _, _, ok := pgDiagnostics(err)
	return ok && code == pgCheckViolation
}

func pgDiagnostics(err error) (code, constraint, table, detail, message string, ok bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail, pgxErr.Message, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail, pqErr.Message, true
	}

	return "", "", "", "", "", false
}
