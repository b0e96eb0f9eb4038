// Package dialect picks squirrel placeholders for the connection's driver.
package dialect

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Builder returns a statement builder using the placeholder format of conn.
func Builder(conn sqlx.ExtContext) sq.StatementBuilderType {
	if sqlx.BindType(conn.DriverName()) == sqlx.DOLLAR {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}
