package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/encourage"
)

type letterRepository struct {
	exec executor
}

var _ encourage.Repository = (*letterRepository)(nil) // interface compliance check

func NewLetterRepository(exec executor) *letterRepository {
	return &letterRepository{exec: exec}
}

// trapNoRowsErr maps psql "no rows" err to encourage.ErrNotFound
func (repo letterRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return encourage.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo letterRepository) CreateLetter(ctx context.Context, ltr encourage.Letter, exec ...core.DBExecutor) (encourage.Letter, error) {
	if ltr.ID == "" {
		ltr.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO letters (
			id, sender_id, recipient_id, sender_message, reply_message,
			sender_sent_at, recipient_replied_at, recipient_read_at, sender_reply_read_at, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := getExec(repo.exec, exec).ExecContext(
		ctx, q,
		ltr.ID, ltr.SenderID, ltr.RecipientID, ltr.SenderMessage, ltr.ReplyMessage,
		ltr.SenderSentAt, ltr.RecipientRepliedAt, ltr.RecipientReadAt, ltr.SenderReplyReadAt, ltr.Status,
	); err != nil {
		return encourage.Letter{}, errors.Wrap(err, "inserting letter")
	}
	return ltr, nil
}

func (repo letterRepository) GetLetter(ctx context.Context, id string, exec ...core.DBExecutor) (encourage.Letter, error) {
	if _, err := uuid.Parse(id); err != nil {
		return encourage.Letter{}, encourage.ErrNotFound
	}

	var ltr encourage.Letter
	const q = `SELECT * FROM letters WHERE id = $1`
	if err := getExec(repo.exec, exec).GetContext(ctx, &ltr, q, id); err != nil {
		return encourage.Letter{}, repo.trapNoRowsErr(err, "finding letter")
	}
	return ltr, nil
}

func (repo letterRepository) QueryInbox(ctx context.Context, recipientID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]encourage.Letter, error) {
	letters := make([]encourage.Letter, 0)
	q := `SELECT * FROM letters WHERE recipient_id = $1` + orderBy(ordering)
	if err := getExec(repo.exec, exec).SelectContext(ctx, &letters, q, recipientID); err != nil {
		return nil, errors.Wrap(err, "querying inbox")
	}
	return letters, nil
}

func (repo letterRepository) QuerySent(ctx context.Context, senderID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]encourage.Letter, error) {
	letters := make([]encourage.Letter, 0)
	q := `SELECT * FROM letters WHERE sender_id = $1` + orderBy(ordering)
	if err := getExec(repo.exec, exec).SelectContext(ctx, &letters, q, senderID); err != nil {
		return nil, errors.Wrap(err, "querying sent letters")
	}
	return letters, nil
}

// SetReply is conditional on no reply existing yet, so of two racing
// replies exactly one sees a row updated.
func (repo letterRepository) SetReply(ctx context.Context, id, recipientID, message string, at time.Time, exec ...core.DBExecutor) (bool, error) {
	const q = `
		UPDATE letters
		SET reply_message = $3, recipient_replied_at = $4, status = $5
		WHERE id = $1 AND recipient_id = $2 AND reply_message IS NULL`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, id, recipientID, message, at, encourage.StatusReplied)
	if err != nil {
		return false, errors.Wrap(err, "recording reply")
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "recording reply")
	}
	return updated > 0, nil
}

func (repo letterRepository) SetRecipientReadAt(ctx context.Context, id, recipientID string, at time.Time, exec ...core.DBExecutor) (bool, error) {
	const q = `
		UPDATE letters SET recipient_read_at = $3
		WHERE id = $1 AND recipient_id = $2 AND recipient_read_at IS NULL`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, id, recipientID, at)
	if err != nil {
		return false, errors.Wrap(err, "marking letter read")
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "marking letter read")
	}
	return updated > 0, nil
}

func (repo letterRepository) SetSenderReplyReadAt(ctx context.Context, id, senderID string, at time.Time, exec ...core.DBExecutor) (bool, error) {
	const q = `
		UPDATE letters SET sender_reply_read_at = $3
		WHERE id = $1 AND sender_id = $2 AND sender_reply_read_at IS NULL`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, id, senderID, at)
	if err != nil {
		return false, errors.Wrap(err, "marking reply read")
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "marking reply read")
	}
	return updated > 0, nil
}

func (repo letterRepository) GetLetterCounts(ctx context.Context, userID string, exec ...core.DBExecutor) (encourage.LetterCounts, error) {
	var counts encourage.LetterCounts
	const q = `
		SELECT
			COUNT(*) FILTER (WHERE recipient_id = $1 AND recipient_read_at IS NULL)                         AS unread_letters,
			COUNT(*) FILTER (WHERE recipient_id = $1 AND status = 'delivered')                              AS awaiting_reply,
			COUNT(*) FILTER (WHERE sender_id = $1 AND status = 'replied' AND sender_reply_read_at IS NULL)  AS unread_replies
		FROM letters
		WHERE recipient_id = $1 OR sender_id = $1`
	if err := getExec(repo.exec, exec).GetContext(ctx, &counts, q, userID); err != nil {
		return encourage.LetterCounts{}, errors.Wrap(err, "counting letters")
	}
	return counts, nil
}
