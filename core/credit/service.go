package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Chrouos/tomato-website-sub000/core"
)

// Service serializes all balance mutations per user and maintains the
// audit log. Two concurrent adjustments for the same user are ordered
// by the row lock; different users never block each other.
type Service struct {
	db   core.DB
	repo Repository
}

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// Adjust applies amount (positive or negative) to the user's balance and
// appends an audit Event, all in one unit of work. When an exec is given
// the caller owns the transaction; otherwise Adjust begins and commits
// its own.
//
// A duplicate (user, reason, reference) is not an error: the adjustment
// is treated as already applied and the current balance is returned.
// An adjustment that would drive the balance negative fails with
// ErrInsufficientCredit and leaves no trace.
func (svc *Service) Adjust(
	ctx context.Context,
	userID string,
	amount int,
	reason Reason,
	referenceID string,
	exec ...core.DBExecutor,
) (Adjustment, error) {
	if amount == 0 { // nothing to write
		credits, err := svc.repo.GetCredits(ctx, userID, exec...)
		if err != nil {
			return Adjustment{}, errors.Wrap(err, "reading balance")
		}
		return Adjustment{NewBalance: credits}, nil
	}

	if len(exec) > 0 {
		return svc.adjust(ctx, userID, amount, reason, referenceID, exec[0])
	}

	tx, err := svc.db.Begin(ctx)
	if err != nil {
		return Adjustment{}, errors.Wrap(err, "beginning adjustment")
	}
	adj, err := svc.adjust(ctx, userID, amount, reason, referenceID, tx)
	if err != nil {
		_ = tx.Rollback()
		return Adjustment{}, err
	}
	if err = tx.Commit(); err != nil {
		return Adjustment{}, errors.Wrap(err, "committing adjustment")
	}
	return adj, nil
}

func (svc *Service) adjust(
	ctx context.Context,
	userID string,
	amount int,
	reason Reason,
	referenceID string,
	exec core.DBExecutor,
) (Adjustment, error) {
	current, err := svc.repo.LockBalance(ctx, userID, exec)
	if err != nil {
		return Adjustment{}, errors.Wrap(err, "locking balance")
	}

	evt := Event{
		ID:          uuid.New().String(),
		UserID:      userID,
		Change:      amount,
		Reason:      reason,
		ReferenceID: null.NewString(referenceID, referenceID != ""),
		CreatedAt:   time.Now().UTC(),
	}
	applied, err := svc.repo.CreateEvent(ctx, evt, exec)
	if err != nil {
		return Adjustment{}, errors.Wrap(err, "appending credit event")
	}
	if !applied { // already granted for this reference
		return Adjustment{NewBalance: current}, nil
	}

	next := current + amount
	if next < 0 {
		return Adjustment{}, ErrInsufficientCredit
	}
	if err = svc.repo.UpdateCredits(ctx, userID, next, exec); err != nil {
		return Adjustment{}, errors.Wrap(err, "writing balance")
	}
	return Adjustment{EventID: evt.ID, NewBalance: next, Applied: true}, nil
}

// Balance returns the user's current credits without locking.
func (svc *Service) Balance(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	return svc.repo.GetCredits(ctx, userID, exec...)
}

// SetEventReference links an audit event to the row it paid for, once
// that row's id exists. Meant to be called in the same unit of work as
// the Adjust that created the event.
func (svc *Service) SetEventReference(ctx context.Context, eventID, referenceID string, exec ...core.DBExecutor) error {
	return svc.repo.SetEventReference(ctx, eventID, referenceID, exec...)
}

// Events returns the user's audit trail, most recent first.
func (svc *Service) Events(ctx context.Context, userID string) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, userID)
}
