package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/encourage"
)

type letterRepository struct {
	db *DB
}

var _ encourage.Repository = (*letterRepository)(nil)

func NewLetterRepository(db *DB) encourage.Repository {
	return &letterRepository{db}
}

func (repo *letterRepository) CreateLetter(_ context.Context, ltr encourage.Letter, exec ...core.DBExecutor) (encourage.Letter, error) {
	defer repo.db.lock(exec)()

	if ltr.ID == "" {
		ltr.ID = uuid.New().String()
	}
	l := ltr
	repo.db.data.letters[ltr.ID] = &l
	return ltr, nil
}

func (repo *letterRepository) GetLetter(_ context.Context, id string, exec ...core.DBExecutor) (encourage.Letter, error) {
	defer repo.db.lock(exec)()

	if ltr, ok := repo.db.data.letters[id]; ok {
		return *ltr, nil
	}
	return encourage.Letter{}, encourage.ErrNotFound
}

func (repo *letterRepository) QueryInbox(_ context.Context, recipientID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]encourage.Letter, error) {
	defer repo.db.lock(exec)()

	return repo.query(func(ltr *encourage.Letter) bool { return ltr.RecipientID == recipientID }, ordering), nil
}

func (repo *letterRepository) QuerySent(_ context.Context, senderID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]encourage.Letter, error) {
	defer repo.db.lock(exec)()

	return repo.query(func(ltr *encourage.Letter) bool { return ltr.SenderID == senderID }, ordering), nil
}

// query collects matching letters ordered by send time; only the
// sender_sent_at ordering the services use is supported, and the
// default is newest first.
func (repo *letterRepository) query(match func(*encourage.Letter) bool, ordering []core.DBOrdering) []encourage.Letter {
	letters := make([]encourage.Letter, 0)
	for _, ltr := range repo.db.data.letters {
		if match(ltr) {
			letters = append(letters, *ltr)
		}
	}

	ascending := false
	if len(ordering) > 0 && ordering[0].Field == "sender_sent_at" {
		ascending = ordering[0].Ascending
	}
	sort.Slice(letters, func(i, j int) bool {
		if ascending {
			return letters[i].SenderSentAt.Before(letters[j].SenderSentAt)
		}
		return letters[i].SenderSentAt.After(letters[j].SenderSentAt)
	})
	return letters
}

func (repo *letterRepository) SetReply(_ context.Context, id, recipientID, message string, at time.Time, exec ...core.DBExecutor) (bool, error) {
	defer repo.db.lock(exec)()

	ltr, ok := repo.db.data.letters[id]
	if !ok || ltr.RecipientID != recipientID || ltr.ReplyMessage.Valid {
		return false, nil
	}
	ltr.ReplyMessage = null.StringFrom(message)
	ltr.RecipientRepliedAt = null.TimeFrom(at)
	ltr.Status = encourage.StatusReplied
	return true, nil
}

func (repo *letterRepository) SetRecipientReadAt(_ context.Context, id, recipientID string, at time.Time, exec ...core.DBExecutor) (bool, error) {
	defer repo.db.lock(exec)()

	ltr, ok := repo.db.data.letters[id]
	if !ok || ltr.RecipientID != recipientID || ltr.RecipientReadAt.Valid {
		return false, nil
	}
	ltr.RecipientReadAt = null.TimeFrom(at)
	return true, nil
}

func (repo *letterRepository) SetSenderReplyReadAt(_ context.Context, id, senderID string, at time.Time, exec ...core.DBExecutor) (bool, error) {
	defer repo.db.lock(exec)()

	ltr, ok := repo.db.data.letters[id]
	if !ok || ltr.SenderID != senderID || ltr.SenderReplyReadAt.Valid {
		return false, nil
	}
	ltr.SenderReplyReadAt = null.TimeFrom(at)
	return true, nil
}

func (repo *letterRepository) GetLetterCounts(_ context.Context, userID string, exec ...core.DBExecutor) (encourage.LetterCounts, error) {
	defer repo.db.lock(exec)()

	var counts encourage.LetterCounts
	for _, ltr := range repo.db.data.letters {
		if ltr.RecipientID == userID {
			if !ltr.RecipientReadAt.Valid {
				counts.UnreadLetters++
			}
			if ltr.Status == encourage.StatusDelivered {
				counts.AwaitingReply++
			}
		}
		if ltr.SenderID == userID && ltr.Status == encourage.StatusReplied && !ltr.SenderReplyReadAt.Valid {
			counts.UnreadReplies++
		}
	}
	return counts, nil
}
