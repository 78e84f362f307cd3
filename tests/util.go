package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Chrouos/tomato-website-sub000/core/credit"
	"github.com/Chrouos/tomato-website-sub000/core/encourage"
	"github.com/Chrouos/tomato-website-sub000/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	isActive bool,
) user.User {
	t.Helper()

	usr := user.User{
		Name:     name,
		Username: uname,
		Email:    email,
		IsActive: isActive,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// GrantCredits funds usr's balance through the ledger so letter sends
// in tests do not fail on the non-negative check.
func GrantCredits(t *testing.T, ledger *credit.Service, userID string, amount int) {
	t.Helper()

	if _, err := ledger.Adjust(context.Background(), userID, amount, credit.ReasonSessionComplete, ""); err != nil {
		t.Fatalf("GrantCredits() failed: %v", err)
	}
}

// SendLetter funds the sender with one credit and sends a letter.
func SendLetter(t *testing.T, svc *encourage.Service, ledger *credit.Service, senderID, message string) encourage.Letter {
	t.Helper()

	GrantCredits(t, ledger, senderID, 1)
	ltr, err := svc.CreateLetter(context.Background(), senderID, message)
	if err != nil {
		t.Fatalf("SendLetter() failed: %v", err)
	}
	return ltr
}

// Eventually polls cond until it returns true or the deadline passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
