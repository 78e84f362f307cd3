package encourage

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/Chrouos/tomato-website-sub000/core"
)

// Letter statuses. A letter is created delivered and may move to
// replied exactly once; there is no withdraw or delete.
const (
	StatusDelivered = "delivered"
	StatusReplied   = "replied"
)

// EventUpdated is the hub event emitted for every letter state change.
const EventUpdated = "encouragement:updated"

// Action tags carried by EventUpdated payloads.
const (
	ActionSent          = "sent"
	ActionReceived      = "received"
	ActionReplied       = "replied"
	ActionReplyReceived = "reply-received"
	ActionRead          = "read"
	ActionLetterRead    = "letter-read"
	ActionReadReply     = "read-reply"
	ActionReplyRead     = "reply-read"
)

// MaxMessageLen bounds letter and reply messages, in runes.
const MaxMessageLen = 2000

var (
	// errors
	ErrNotFound       = errors.New("letter not found")
	ErrAlreadyReplied = errors.New("letter has already been replied to")
	ErrNoRecipient    = errors.New("no recipient available")
)

type (
	// Letter is one anonymous message plus at most one reply, exchanged
	// between two users matched at send time. Participant ids are never
	// serialized; the exchange stays anonymous on the wire.
	Letter struct {
		ID                 string      `json:"id" db:"id"`
		SenderID           string      `json:"-" db:"sender_id"`
		RecipientID        string      `json:"-" db:"recipient_id"`
		SenderMessage      string      `json:"sender_message" db:"sender_message"`
		ReplyMessage       null.String `json:"reply_message" db:"reply_message"`
		SenderSentAt       time.Time   `json:"sender_sent_at" db:"sender_sent_at"` // UTC
		RecipientRepliedAt null.Time   `json:"recipient_replied_at" db:"recipient_replied_at"`
		RecipientReadAt    null.Time   `json:"recipient_read_at" db:"recipient_read_at"`
		SenderReplyReadAt  null.Time   `json:"sender_reply_read_at" db:"sender_reply_read_at"`
		Status             string      `json:"status" db:"status"`
	}

	// UpdatedPayload is the data part of every EventUpdated frame.
	UpdatedPayload struct {
		Action   string `json:"action"`
		LetterID string `json:"letterId"`
	}

	// Summary is the per-user dashboard snapshot.
	Summary struct {
		Credits       int `json:"credits"`
		UnreadLetters int `json:"unread_letters"`
		AwaitingReply int `json:"awaiting_reply"`
		UnreadReplies int `json:"unread_replies"`
	}

	// LetterCounts carries the letter-side counts of Summary.
	LetterCounts struct {
		UnreadLetters int `db:"unread_letters"`
		AwaitingReply int `db:"awaiting_reply"`
		UnreadReplies int `db:"unread_replies"`
	}

	Repository interface {
		CreateLetter(ctx context.Context, ltr Letter, exec ...core.DBExecutor) (Letter, error)
		GetLetter(ctx context.Context, id string, exec ...core.DBExecutor) (Letter, error)
		QueryInbox(ctx context.Context, recipientID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Letter, error)
		QuerySent(ctx context.Context, senderID string, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Letter, error)
		// SetReply records the reply iff none exists yet; reports whether
		// this call won the write.
		SetReply(ctx context.Context, id, recipientID, message string, at time.Time, exec ...core.DBExecutor) (bool, error)
		// SetRecipientReadAt/SetSenderReplyReadAt stamp the timestamp iff
		// currently unset; the stamps are monotonic and never cleared.
		SetRecipientReadAt(ctx context.Context, id, recipientID string, at time.Time, exec ...core.DBExecutor) (bool, error)
		SetSenderReplyReadAt(ctx context.Context, id, senderID string, at time.Time, exec ...core.DBExecutor) (bool, error)
		GetLetterCounts(ctx context.Context, userID string, exec ...core.DBExecutor) (LetterCounts, error)
	}
)

// NewLetter is the request payload for sending a letter.
type NewLetter struct {
	Message string `json:"message" validate:"required,max=2000"`
}

func (nl *NewLetter) Validate() error {
	nl.Message = core.CleanString(nl.Message)
	return core.Validate.Struct(nl)
}

// NewReply is the request payload for replying to a received letter.
type NewReply struct {
	Message string `json:"message" validate:"required,max=2000"`
}

func (nr *NewReply) Validate() error {
	nr.Message = core.CleanString(nr.Message)
	return core.Validate.Struct(nr)
}
