package dummydb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/credit"
)

type creditRepository struct {
	db *DB
}

var _ credit.Repository = (*creditRepository)(nil)

func NewCreditRepository(db *DB) credit.Repository {
	return &creditRepository{db}
}

func (repo *creditRepository) GetCredits(_ context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	defer repo.db.lock(exec)()

	return repo.db.data.balances[userID], nil
}

// LockBalance relies on the table lock held by the enclosing transaction;
// it only materializes the balance row like the Postgres upsert does.
func (repo *creditRepository) LockBalance(_ context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	defer repo.db.lock(exec)()

	credits, ok := repo.db.data.balances[userID]
	if !ok {
		repo.db.data.balances[userID] = 0
	}
	return credits, nil
}

func (repo *creditRepository) UpdateCredits(_ context.Context, userID string, credits int, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	repo.db.data.balances[userID] = credits
	return nil
}

func (repo *creditRepository) CreateEvent(_ context.Context, evt credit.Event, exec ...core.DBExecutor) (bool, error) {
	defer repo.db.lock(exec)()

	if evt.ReferenceID.Valid {
		for _, e := range repo.db.data.events {
			if e.UserID == evt.UserID && e.Reason == evt.Reason && e.ReferenceID == evt.ReferenceID {
				return false, nil
			}
		}
	}
	e := evt
	repo.db.data.events[evt.ID] = &e
	return true, nil
}

func (repo *creditRepository) SetEventReference(_ context.Context, eventID, referenceID string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	if evt, ok := repo.db.data.events[eventID]; ok {
		evt.ReferenceID = null.StringFrom(referenceID)
	}
	return nil
}

func (repo *creditRepository) QueryEvents(_ context.Context, userID string, exec ...core.DBExecutor) ([]credit.Event, error) {
	defer repo.db.lock(exec)()

	events := make([]credit.Event, 0)
	for _, evt := range repo.db.data.events {
		if evt.UserID == userID {
			events = append(events, *evt)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return events, nil
}
