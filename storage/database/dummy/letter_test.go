package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/encourage"
)

func TestLetterQueryOrdering(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)
	repo := NewLetterRepository(db)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"first", "second", "third"} {
		_, err = repo.CreateLetter(ctx, encourage.Letter{
			ID:            id,
			SenderID:      "alice",
			RecipientID:   "bob",
			SenderMessage: "hang in there",
			SenderSentAt:  base.Add(time.Duration(i) * time.Minute),
			Status:        encourage.StatusDelivered,
		})
		require.NoError(t, err)
	}

	letterIDs := func(letters []encourage.Letter) []string {
		ids := make([]string, 0, len(letters))
		for _, ltr := range letters {
			ids = append(ids, ltr.ID)
		}
		return ids
	}

	// default and explicit descending both come back newest first
	inbox, err := repo.QueryInbox(ctx, "bob", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, letterIDs(inbox))

	inbox, err = repo.QueryInbox(ctx, "bob", []core.DBOrdering{{Field: "sender_sent_at"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, letterIDs(inbox))

	sent, err := repo.QuerySent(ctx, "alice", []core.DBOrdering{{Field: "sender_sent_at", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, letterIDs(sent))
}
