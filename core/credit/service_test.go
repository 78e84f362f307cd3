package credit_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Chrouos/tomato-website-sub000/core/credit"
	dummydb "github.com/Chrouos/tomato-website-sub000/storage/database/dummy"
)

func setup(t *testing.T) *credit.Service {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	return credit.NewService(db, dummydb.NewCreditRepository(db))
}

func TestAdjustGrant(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	adj, err := svc.Adjust(ctx, "alice", 2, credit.ReasonSessionComplete, "session-1")
	assert.NoError(t, err)
	assert.True(t, adj.Applied)
	assert.Equal(t, 2, adj.NewBalance)
	assert.NotEmpty(t, adj.EventID)

	credits, err := svc.Balance(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, 2, credits)

	events, err := svc.Events(ctx, "alice")
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Change)
}

func TestAdjustDuplicateReferenceIsNoop(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "alice", 1, credit.ReasonSessionComplete, "session-1")
	assert.NoError(t, err)

	adj, err := svc.Adjust(ctx, "alice", 1, credit.ReasonSessionComplete, "session-1")
	assert.NoError(t, err)
	assert.False(t, adj.Applied)
	assert.Equal(t, 1, adj.NewBalance)

	credits, _ := svc.Balance(ctx, "alice")
	assert.Equal(t, 1, credits)

	events, _ := svc.Events(ctx, "alice")
	assert.Len(t, events, 1)
}

func TestAdjustWithoutReferenceAccumulates(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		adj, err := svc.Adjust(ctx, "alice", 1, credit.ReasonSessionComplete, "")
		assert.NoError(t, err)
		assert.True(t, adj.Applied)
	}

	credits, _ := svc.Balance(ctx, "alice")
	assert.Equal(t, 2, credits)

	events, _ := svc.Events(ctx, "alice")
	assert.Len(t, events, 2)
}

func TestAdjustInsufficientCreditLeavesNoTrace(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "alice", -1, credit.ReasonSendLetter, "")
	assert.Equal(t, credit.ErrInsufficientCredit, err)

	credits, _ := svc.Balance(ctx, "alice")
	assert.Equal(t, 0, credits)

	// the failed debit's audit event must be rolled back with it
	events, _ := svc.Events(ctx, "alice")
	assert.Len(t, events, 0)
}

func TestAdjustZeroIsReadOnly(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, "alice", 3, credit.ReasonSessionComplete, "")
	assert.NoError(t, err)

	adj, err := svc.Adjust(ctx, "alice", 0, credit.ReasonSessionComplete, "")
	assert.NoError(t, err)
	assert.False(t, adj.Applied)
	assert.Equal(t, 3, adj.NewBalance)

	events, _ := svc.Events(ctx, "alice")
	assert.Len(t, events, 1)
}

func TestAdjustConcurrentSameUser(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Adjust(ctx, "alice", 1, credit.ReasonSessionComplete, fmt.Sprintf("session-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	credits, _ := svc.Balance(ctx, "alice")
	assert.Equal(t, n, credits)
}
