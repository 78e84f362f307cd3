package encourage

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/credit"
	"github.com/Chrouos/tomato-website-sub000/core/push"
	"github.com/Chrouos/tomato-website-sub000/core/user"
)

var sentOrdering = []core.DBOrdering{{Field: "sender_sent_at"}} // most recent first

// Service orchestrates the anonymous letter workflow: random recipient
// selection, atomic debit, letter creation, reply and read-state
// tracking. Outcomes are pushed through the hub after commit,
// best-effort.
type Service struct {
	db      core.DB
	repo    Repository
	usrRepo user.Repository
	ledger  *credit.Service
	hub     *push.Hub
}

func NewService(db core.DB, repo Repository, usrRepo user.Repository, ledger *credit.Service, hub *push.Hub) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		usrRepo: usrRepo,
		ledger:  ledger,
		hub:     hub,
	}
}

// GrantCreditForSession awards credits for a completed focus session.
// Repeats for the same session are no-ops, whatever amount they carry.
func (svc *Service) GrantCreditForSession(ctx context.Context, userID, sessionID string, amount ...int) (int, error) {
	n := 1
	if len(amount) > 0 {
		n = amount[0]
	}
	adj, err := svc.ledger.Adjust(ctx, userID, n, credit.ReasonSessionComplete, sessionID)
	if err != nil {
		return 0, errors.Wrap(err, "granting session credit")
	}
	return adj.NewBalance, nil
}

// CreateLetter debits the sender one credit and delivers an anonymous
// letter to a random other user, atomically. On success both parties
// are notified through the hub.
func (svc *Service) CreateLetter(ctx context.Context, senderID, message string) (Letter, error) {
	message, err := cleanMessage(message)
	if err != nil {
		return Letter{}, err
	}

	tx, err := svc.db.Begin(ctx)
	if err != nil {
		return Letter{}, errors.Wrap(err, "beginning letter creation")
	}

	ltr, err := svc.createLetter(ctx, senderID, message, tx)
	if err != nil {
		_ = tx.Rollback()
		return Letter{}, err
	}
	if err = tx.Commit(); err != nil {
		return Letter{}, errors.Wrap(err, "committing letter creation")
	}

	svc.hub.PublishToUser(ltr.SenderID, EventUpdated, UpdatedPayload{Action: ActionSent, LetterID: ltr.ID})
	svc.hub.PublishToUser(ltr.RecipientID, EventUpdated, UpdatedPayload{Action: ActionReceived, LetterID: ltr.ID})
	return ltr, nil
}

func (svc *Service) createLetter(ctx context.Context, senderID, message string, tx core.DBTransactor) (Letter, error) {
	recipient, err := svc.pickRecipient(ctx, senderID, tx)
	if err != nil {
		return Letter{}, err
	}

	adj, err := svc.ledger.Adjust(ctx, senderID, -1, credit.ReasonSendLetter, "", tx)
	if err != nil {
		if errors.Cause(err) == credit.ErrInsufficientCredit {
			return Letter{}, credit.ErrInsufficientCredit
		}
		return Letter{}, errors.Wrap(err, "debiting sender")
	}

	ltr := Letter{
		ID:            uuid.New().String(),
		SenderID:      senderID,
		RecipientID:   recipient.ID,
		SenderMessage: message,
		SenderSentAt:  time.Now().UTC(),
		Status:        StatusDelivered,
	}
	if ltr, err = svc.repo.CreateLetter(ctx, ltr, tx); err != nil {
		return Letter{}, errors.Wrap(err, "creating letter")
	}

	// link the debit to the letter it paid for
	if err = svc.ledger.SetEventReference(ctx, adj.EventID, ltr.ID, tx); err != nil {
		return Letter{}, errors.Wrap(err, "linking credit event")
	}
	return ltr, nil
}

// pickRecipient chooses uniformly at random among all users other than
// the sender. A sender who is the sole user in the system writes to
// themselves; otherwise an empty pool is ErrNoRecipient.
func (svc *Service) pickRecipient(ctx context.Context, senderID string, exec core.DBExecutor) (user.User, error) {
	recipient, err := svc.usrRepo.PickRandomUser(ctx, senderID, exec)
	if err == nil {
		return recipient, nil
	}
	if errors.Cause(err) != user.ErrNotFound {
		return user.User{}, errors.Wrap(err, "picking recipient")
	}

	sender, err := svc.usrRepo.GetUserByID(ctx, senderID, exec)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, ErrNoRecipient
		}
		return user.User{}, errors.Wrap(err, "loading sender")
	}
	return sender, nil
}

// ReplyToLetter records the recipient's single reply and notifies both
// parties. A second reply attempt fails with ErrAlreadyReplied and
// leaves the original reply untouched.
func (svc *Service) ReplyToLetter(ctx context.Context, userID, letterID, message string) (Letter, error) {
	message, err := cleanMessage(message)
	if err != nil {
		return Letter{}, err
	}

	ltr, err := svc.getOwnLetter(ctx, letterID, userID, false /* asSender */)
	if err != nil {
		return Letter{}, err
	}
	if ltr.ReplyMessage.Valid {
		return Letter{}, ErrAlreadyReplied
	}

	now := time.Now().UTC()
	won, err := svc.repo.SetReply(ctx, letterID, userID, message, now)
	if err != nil {
		return Letter{}, errors.Wrap(err, "recording reply")
	}
	if !won { // lost the race to a concurrent reply
		return Letter{}, ErrAlreadyReplied
	}

	if ltr, err = svc.repo.GetLetter(ctx, letterID); err != nil {
		return Letter{}, errors.Wrap(err, "reloading letter")
	}
	svc.hub.PublishToUser(ltr.SenderID, EventUpdated, UpdatedPayload{Action: ActionReplyReceived, LetterID: ltr.ID})
	svc.hub.PublishToUser(ltr.RecipientID, EventUpdated, UpdatedPayload{Action: ActionReplied, LetterID: ltr.ID})
	return ltr, nil
}

// MarkLetterRead stamps the recipient's read timestamp if unset. The
// counterpart is pinged either way; the ping is informational only.
func (svc *Service) MarkLetterRead(ctx context.Context, userID, letterID string) error {
	ltr, err := svc.getOwnLetter(ctx, letterID, userID, false /* asSender */)
	if err != nil {
		return err
	}

	if _, err = svc.repo.SetRecipientReadAt(ctx, letterID, userID, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "marking letter read")
	}
	svc.hub.PublishToUser(ltr.SenderID, EventUpdated, UpdatedPayload{Action: ActionLetterRead, LetterID: ltr.ID})
	svc.hub.PublishToUser(userID, EventUpdated, UpdatedPayload{Action: ActionRead, LetterID: ltr.ID})
	return nil
}

// MarkReplyRead stamps the sender's reply-read timestamp if unset.
func (svc *Service) MarkReplyRead(ctx context.Context, userID, letterID string) error {
	ltr, err := svc.getOwnLetter(ctx, letterID, userID, true /* asSender */)
	if err != nil {
		return err
	}

	if _, err = svc.repo.SetSenderReplyReadAt(ctx, letterID, userID, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "marking reply read")
	}
	svc.hub.PublishToUser(ltr.RecipientID, EventUpdated, UpdatedPayload{Action: ActionReplyRead, LetterID: ltr.ID})
	svc.hub.PublishToUser(userID, EventUpdated, UpdatedPayload{Action: ActionReadReply, LetterID: ltr.ID})
	return nil
}

// ListInbox returns the letters userID received, most recent first.
func (svc *Service) ListInbox(ctx context.Context, userID string) ([]Letter, error) {
	return svc.repo.QueryInbox(ctx, userID, sentOrdering)
}

// ListSent returns the letters userID sent, most recent first.
func (svc *Service) ListSent(ctx context.Context, userID string) ([]Letter, error) {
	return svc.repo.QuerySent(ctx, userID, sentOrdering)
}

// GetSummary is a read-only snapshot of the user's credits and letter
// counters.
func (svc *Service) GetSummary(ctx context.Context, userID string) (Summary, error) {
	credits, err := svc.ledger.Balance(ctx, userID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "reading balance")
	}
	counts, err := svc.repo.GetLetterCounts(ctx, userID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "counting letters")
	}
	return Summary{
		Credits:       credits,
		UnreadLetters: counts.UnreadLetters,
		AwaitingReply: counts.AwaitingReply,
		UnreadReplies: counts.UnreadReplies,
	}, nil
}

// getOwnLetter loads the letter and checks the caller is the authorized
// party. An unauthorized caller gets ErrNotFound; letter existence is
// not leaked.
func (svc *Service) getOwnLetter(ctx context.Context, letterID, userID string, asSender bool) (Letter, error) {
	ltr, err := svc.repo.GetLetter(ctx, letterID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Letter{}, ErrNotFound
		}
		return Letter{}, errors.Wrap(err, "loading letter")
	}
	owner := ltr.RecipientID
	if asSender {
		owner = ltr.SenderID
	}
	if owner != userID {
		return Letter{}, ErrNotFound
	}
	return ltr, nil
}

func cleanMessage(message string) (string, error) {
	message = core.CleanString(message)
	if message == "" {
		return "", core.NewValidationError(errors.New("message is required"),
			core.FieldError{Field: "message", Error: "this field is required"})
	}
	if utf8.RuneCountInString(message) > MaxMessageLen {
		return "", core.NewValidationError(errors.New("message too long"),
			core.FieldError{Field: "message", Error: "must be at most 2000 characters"})
	}
	return message, nil
}
