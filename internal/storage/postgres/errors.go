package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// codeUniqueViolation SQLSTATE нарушения уникальности
const codeUniqueViolation = "23505"

// sqlState достаёт SQLSTATE из ошибки lib/pq или pgx
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var stateErr interface{ SQLState() string }
	if errors.As(err, &stateErr) {
		return stateErr.SQLState()
	}
	return ""
}
