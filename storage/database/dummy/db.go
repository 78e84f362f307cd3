// Package dummydb is an in-memory database backend used by tests. It
// mirrors the Postgres backend's transactional behaviour: Begin takes
// the table lock for the whole unit of work and Rollback restores a
// snapshot, so multi-repository flows really are atomic.
package dummydb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pkg/errors"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/credit"
	"github.com/Chrouos/tomato-website-sub000/core/encourage"
	"github.com/Chrouos/tomato-website-sub000/core/user"
)

var errNoSQL = errors.New("dummydb: SQL is not supported")

type (
	DB struct {
		stubExecutor

		mut  sync.Mutex
		data *tables
	}

	tables struct {
		users    map[string]*user.User
		balances map[string]int
		events   map[string]*credit.Event
		letters  map[string]*encourage.Letter
	}

	// Tx is an open unit of work. It holds the table lock until Commit
	// or Rollback, which serializes concurrent units like row locks do
	// on the real backend (just with coarser granularity).
	Tx struct {
		stubExecutor

		db       *DB
		snapshot *tables
		done     bool
	}
)

var (
	_ core.DB           = (*DB)(nil)
	_ core.DBTransactor = (*Tx)(nil)
)

func Open() (*DB, error) {
	return &DB{data: newTables()}, nil
}

func newTables() *tables {
	return &tables{
		users:    make(map[string]*user.User),
		balances: make(map[string]int),
		events:   make(map[string]*credit.Event),
		letters:  make(map[string]*encourage.Letter),
	}
}

func (t *tables) clone() *tables {
	cp := newTables()
	for id, usr := range t.users {
		u := *usr
		cp.users[id] = &u
	}
	for id, credits := range t.balances {
		cp.balances[id] = credits
	}
	for id, evt := range t.events {
		e := *evt
		cp.events[id] = &e
	}
	for id, ltr := range t.letters {
		l := *ltr
		cp.letters[id] = &l
	}
	return cp
}

func (db *DB) Begin(_ context.Context) (core.DBTransactor, error) {
	db.mut.Lock()
	return &Tx{db: db, snapshot: db.data.clone()}, nil
}

// lock takes the table lock unless the caller already holds it through
// an open transaction; it returns the matching unlock.
func (db *DB) lock(exec []core.DBExecutor) func() {
	if len(exec) > 0 {
		if _, ok := exec[0].(*Tx); ok {
			return func() {}
		}
	}
	db.mut.Lock()
	return db.mut.Unlock
}

func (tx *Tx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.db.mut.Unlock()
	return nil
}

func (tx *Tx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.db.data = tx.snapshot
	tx.db.mut.Unlock()
	return nil
}

// stubExecutor satisfies core.DBExecutor; the dummy repositories never
// execute SQL, they only use the executor for transaction identity.
type stubExecutor struct{}

func (stubExecutor) Exec(string, ...interface{}) (sql.Result, error) { return nil, errNoSQL }
func (stubExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (stubExecutor) Query(string, ...interface{}) (*sql.Rows, error) { return nil, errNoSQL }
func (stubExecutor) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}
func (stubExecutor) QueryRow(string, ...interface{}) *sql.Row { return nil }
func (stubExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}
