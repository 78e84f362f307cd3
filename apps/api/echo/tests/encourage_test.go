package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Chrouos/tomato-website-sub000/core/encourage"
	testutil "github.com/Chrouos/tomato-website-sub000/tests"
)

func TestAPIRequiresAuth(t *testing.T) {
	env := setup(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/encouragements"},
		{http.MethodGet, "/v1/encouragements/inbox"},
		{http.MethodGet, "/v1/encouragements/sent"},
		{http.MethodGet, "/v1/encouragements/summary"},
		{http.MethodPost, "/v1/encouragements/some-id/reply"},
		{http.MethodPost, "/v1/encouragements/some-id/read"},
		{http.MethodPost, "/v1/encouragements/some-id/read-reply"},
		{http.MethodPost, "/v1/sessions/some-id/complete"},
		{http.MethodGet, "/v1/notifications/subscribe"},
	}
	for _, tt := range paths {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			env.app.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error": "missing or malformed jwt"}`, rec.Body.String())
		})
	}
}

func TestCompleteSessionAPI(t *testing.T) {
	env := setup(t)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)
	token := getToken(t, alice)

	req, rec := newAuthRequest(http.MethodPost, "/v1/sessions/session-1/complete", token)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"credits": 1}`, rec.Body.String())

	// replaying the same session changes nothing
	req, rec = newAuthRequest(http.MethodPost, "/v1/sessions/session-1/complete", token)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"credits": 1}`, rec.Body.String())
}

func TestCreateLetterAPI(t *testing.T) {
	env := setup(t)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)
	bob := testutil.CreateUser(t, env.usrRepo, "Bob", "bob", "bob@tomato.test", "", true)
	token := getToken(t, alice)
	testutil.GrantCredits(t, env.ledger, alice.ID, 1)

	body := []byte(`{"message": "You can do it!"}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/encouragements", token, body)
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var ltr encourage.Letter
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ltr))
	assert.Equal(t, "You can do it!", ltr.SenderMessage)
	assert.Equal(t, encourage.StatusDelivered, ltr.Status)

	// participant ids never appear on the wire
	var raw map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "sender_id")
	assert.NotContains(t, raw, "recipient_id")

	inbox, err := env.svc.ListInbox(context.Background(), bob.ID)
	assert.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestCreateLetterAPIInsufficientCredit(t *testing.T) {
	env := setup(t)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)
	testutil.CreateUser(t, env.usrRepo, "Bob", "bob", "bob@tomato.test", "", true)
	token := getToken(t, alice)

	req, rec := newAuthRequest(http.MethodPost, "/v1/encouragements", token, []byte(`{"message": "hi"}`))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "insufficient credit"}`, rec.Body.String())
}

func TestCreateLetterAPIValidation(t *testing.T) {
	env := setup(t)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)
	token := getToken(t, alice)
	testutil.GrantCredits(t, env.ledger, alice.ID, 1)

	req, rec := newAuthRequest(http.MethodPost, "/v1/encouragements", token, []byte(`{"message": "  "}`))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "message")
}

func TestReplyAPI(t *testing.T) {
	env := setup(t)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)
	bob := testutil.CreateUser(t, env.usrRepo, "Bob", "bob", "bob@tomato.test", "", true)

	ltr := testutil.SendLetter(t, env.svc, env.ledger, alice.ID, "keep going")
	path := fmt.Sprintf("/v1/encouragements/%s/reply", ltr.ID)

	// only the recipient can reply
	req, rec := newAuthRequest(http.MethodPost, path, getToken(t, alice), []byte(`{"message": "me"}`))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, path, getToken(t, bob), []byte(`{"message": "thanks!"}`))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var replied encourage.Letter
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replied))
	assert.Equal(t, encourage.StatusReplied, replied.Status)
	assert.Equal(t, "thanks!", replied.ReplyMessage.String)

	// a second reply conflicts
	req, rec = newAuthRequest(http.MethodPost, path, getToken(t, bob), []byte(`{"message": "again"}`))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error": "letter has already been replied to"}`, rec.Body.String())
}

func TestReadMarkAPI(t *testing.T) {
	env := setup(t)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)
	bob := testutil.CreateUser(t, env.usrRepo, "Bob", "bob", "bob@tomato.test", "", true)

	ltr := testutil.SendLetter(t, env.svc, env.ledger, alice.ID, "keep going")

	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/encouragements/%s/read", ltr.ID), getToken(t, bob))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := env.svc.ReplyToLetter(context.Background(), bob.ID, ltr.ID, "thanks!")
	assert.NoError(t, err)

	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/encouragements/%s/read-reply", ltr.ID), getToken(t, alice))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// unknown letter
	req, rec = newAuthRequest(http.MethodPost, "/v1/encouragements/nope/read", getToken(t, bob))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInboxSentSummaryAPI(t *testing.T) {
	env := setup(t)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)
	bob := testutil.CreateUser(t, env.usrRepo, "Bob", "bob", "bob@tomato.test", "", true)

	testutil.SendLetter(t, env.svc, env.ledger, alice.ID, "first")
	testutil.SendLetter(t, env.svc, env.ledger, alice.ID, "second")

	req, rec := newAuthRequest(http.MethodGet, "/v1/encouragements/inbox", getToken(t, bob))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var inbox []encourage.Letter
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inbox))
	assert.Len(t, inbox, 2)

	req, rec = newAuthRequest(http.MethodGet, "/v1/encouragements/sent", getToken(t, alice))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var sent []encourage.Letter
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))
	assert.Len(t, sent, 2)

	req, rec = newAuthRequest(http.MethodGet, "/v1/encouragements/summary", getToken(t, bob))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"credits": 0, "unread_letters": 2, "awaiting_reply": 2, "unread_replies": 0}`, rec.Body.String())
}
