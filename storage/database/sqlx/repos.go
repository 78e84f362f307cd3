// Package sqlxrepos implements the domain repositories on Postgres via
// sqlx. Repositories accept an optional core.DBExecutor so services can
// thread one transaction through several of them.
package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Chrouos/tomato-website-sub000/core"
)

// executor is satisfied by *database.DB and *sqlx.Tx.
type executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func getExec(dflt executor, svcExec []core.DBExecutor) executor {
	if len(svcExec) > 0 {
		if ext, ok := svcExec[0].(executor); ok {
			return ext
		}
	}
	return dflt
}

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	clause := " ORDER BY "
	for i, ord := range ordering {
		if i > 0 {
			clause += ", "
		}
		clause += ord.String()
	}
	return clause
}
