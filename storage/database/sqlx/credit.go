package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/credit"
)

type creditRepository struct {
	exec executor
}

var _ credit.Repository = (*creditRepository)(nil) // interface compliance check

func NewCreditRepository(exec executor) *creditRepository {
	return &creditRepository{exec: exec}
}

func (repo creditRepository) GetCredits(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	var credits int
	const q = `SELECT credits FROM credit_balances WHERE user_id = $1`
	if err := getExec(repo.exec, exec).GetContext(ctx, &credits, q, userID); err != nil {
		if err == sql.ErrNoRows { // no adjustment yet
			return 0, nil
		}
		return 0, errors.Wrap(err, "reading credits")
	}
	return credits, nil
}

// LockBalance creates the balance row if absent, then takes a row-level
// exclusive lock on it. The lock is held until the surrounding
// transaction ends, serializing concurrent adjustments per user while
// leaving other users' rows untouched.
func (repo creditRepository) LockBalance(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	exe := getExec(repo.exec, exec)

	const ins = `INSERT INTO credit_balances (user_id, credits) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`
	if _, err := exe.ExecContext(ctx, ins, userID); err != nil {
		return 0, errors.Wrap(err, "ensuring balance row")
	}

	var credits int
	const sel = `SELECT credits FROM credit_balances WHERE user_id = $1 FOR UPDATE`
	if err := exe.GetContext(ctx, &credits, sel, userID); err != nil {
		return 0, errors.Wrap(err, "locking balance row")
	}
	return credits, nil
}

func (repo creditRepository) UpdateCredits(ctx context.Context, userID string, credits int, exec ...core.DBExecutor) error {
	const q = `UPDATE credit_balances SET credits = $2 WHERE user_id = $1`
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, userID, credits); err != nil {
		return errors.Wrap(err, "updating credits")
	}
	return nil
}

// CreateEvent attempts the insert and treats a (user, reason, reference)
// conflict as already-applied instead of pre-checking, so two racing
// grants cannot both slip through.
func (repo creditRepository) CreateEvent(ctx context.Context, evt credit.Event, exec ...core.DBExecutor) (bool, error) {
	const q = `
		INSERT INTO credit_events (id, user_id, change, reason, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, reason, reference_id) DO NOTHING`
	res, err := getExec(repo.exec, exec).ExecContext(
		ctx, q,
		evt.ID, evt.UserID, evt.Change, evt.Reason, evt.ReferenceID, evt.CreatedAt,
	)
	if err != nil {
		return false, errors.Wrap(err, "inserting credit event")
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "inserting credit event")
	}
	return inserted > 0, nil
}

func (repo creditRepository) SetEventReference(ctx context.Context, eventID, referenceID string, exec ...core.DBExecutor) error {
	const q = `UPDATE credit_events SET reference_id = $2 WHERE id = $1`
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, eventID, referenceID); err != nil {
		return errors.Wrap(err, "updating event reference")
	}
	return nil
}

func (repo creditRepository) QueryEvents(ctx context.Context, userID string, exec ...core.DBExecutor) ([]credit.Event, error) {
	events := make([]credit.Event, 0)
	const q = `SELECT * FROM credit_events WHERE user_id = $1 ORDER BY created_at DESC`
	if err := getExec(repo.exec, exec).SelectContext(ctx, &events, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying credit events")
	}
	return events, nil
}
