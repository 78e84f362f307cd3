package tests

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Chrouos/tomato-website-sub000/core/encourage"
	"github.com/Chrouos/tomato-website-sub000/core/push"
	testutil "github.com/Chrouos/tomato-website-sub000/tests"
)

// readLine reads one line off the stream, failing the test if nothing
// arrives in time. The recorder cannot stream, hence a real server.
func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := r.ReadString('\n')
		ch <- result{strings.TrimRight(line, "\n"), err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("readLine() failed: %v", res.err)
		}
		return res.line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out reading stream")
		return ""
	}
}

func TestSubscribeStream(t *testing.T) {
	env := setup(t)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)

	srv := httptest.NewServer(env.app)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/notifications/subscribe?token=" + getToken(t, alice))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, reader))
	assert.Equal(t, "", readLine(t, reader))

	testutil.Eventually(t, time.Second, func() bool {
		return env.registry.Count(alice.ID) == 1
	}, "subscriber never registered")

	env.hub.PublishToUser(alice.ID, encourage.EventUpdated, encourage.UpdatedPayload{
		Action:   encourage.ActionReceived,
		LetterID: "letter-1",
	})

	assert.True(t, strings.HasPrefix(readLine(t, reader), "id: "))
	assert.Equal(t, "event: "+encourage.EventUpdated, readLine(t, reader))
	assert.Equal(t, `data: {"action":"received","letterId":"letter-1"}`, readLine(t, reader))
	assert.Equal(t, "", readLine(t, reader))
}

func TestSubscribeStreamHeartbeat(t *testing.T) {
	env := setup(t, 20*time.Millisecond)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)

	srv := httptest.NewServer(env.app)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/notifications/subscribe", nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+getToken(t, alice))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, reader))
	assert.Equal(t, "", readLine(t, reader))

	// heartbeat frames carry no id
	assert.Equal(t, "event: "+push.EventHeartbeat, readLine(t, reader))
	assert.True(t, strings.HasPrefix(readLine(t, reader), "data: "))
	assert.Equal(t, "", readLine(t, reader))
}

func TestSubscribeStreamDisconnectUnregisters(t *testing.T) {
	env := setup(t)
	alice := testutil.CreateUser(t, env.usrRepo, "Alice", "alice", "alice@tomato.test", "", true)

	srv := httptest.NewServer(env.app)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/notifications/subscribe?token=" + getToken(t, alice))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}

	reader := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, reader))

	testutil.Eventually(t, time.Second, func() bool {
		return env.registry.Count(alice.ID) == 1
	}, "subscriber never registered")

	resp.Body.Close()

	testutil.Eventually(t, time.Second, func() bool {
		return env.registry.Count(alice.ID) == 0
	}, "subscriber never unregistered after disconnect")
}
