package credit

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/Chrouos/tomato-website-sub000/core"
)

// Reasons a balance may change. Every mutation records one.
const (
	ReasonSessionComplete Reason = "session_complete"
	ReasonSendLetter      Reason = "send_letter"
)

var (
	// errors
	ErrInsufficientCredit = errors.New("insufficient credit")
)

type (
	Reason string

	// Balance is the single per-user credit row. It is created lazily on
	// the first adjustment and only ever mutated under a row lock.
	Balance struct {
		UserID  string `json:"user_id" db:"user_id"`
		Credits int    `json:"credits" db:"credits"`
	}

	// Event is one entry of the append-only audit trail.
	// (UserID, Reason, ReferenceID) is unique; inserting a duplicate is
	// how repeated session grants collapse into a no-op.
	Event struct {
		ID          string      `json:"id" db:"id"`
		UserID      string      `json:"user_id" db:"user_id"`
		Change      int         `json:"change" db:"change"`
		Reason      Reason      `json:"reason" db:"reason"`
		ReferenceID null.String `json:"reference_id" db:"reference_id"`
		CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
	}

	// Adjustment reports the outcome of Service.Adjust. Applied is false
	// when the event already existed and the balance was left untouched.
	Adjustment struct {
		EventID    string
		NewBalance int
		Applied    bool
	}

	Repository interface {
		// GetCredits returns the current balance, 0 if no row exists yet.
		GetCredits(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		// LockBalance creates the balance row if absent and returns the
		// current credits while holding an exclusive lock on the row for
		// the remainder of the unit of work.
		LockBalance(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		UpdateCredits(ctx context.Context, userID string, credits int, exec ...core.DBExecutor) error
		// CreateEvent appends evt; reports false if an event with the same
		// (user, reason, reference) already exists.
		CreateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (bool, error)
		SetEventReference(ctx context.Context, eventID, referenceID string, exec ...core.DBExecutor) error
		QueryEvents(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Event, error)
	}
)
