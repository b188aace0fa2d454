package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeSlack(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestPostMessage(t *testing.T) {
	var gotChannel, gotText string
	srv := newFakeSlack(t, map[string]http.HandlerFunc{
		"/chat.postMessage": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			gotChannel = r.FormValue("channel")
			gotText = r.FormValue("text")
			writeJSON(w, map[string]any{"ok": true, "channel": gotChannel, "ts": "1700000000.000200"})
		},
	})

	c := NewClient("xoxb-test", slacklib.OptionAPIURL(srv.URL+"/"))
	ts, err := c.PostMessage("C1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000200", ts)
	assert.Equal(t, "C1", gotChannel)
	assert.Equal(t, "hello", gotText)
}

func TestPostMessageError(t *testing.T) {
	srv := newFakeSlack(t, map[string]http.HandlerFunc{
		"/chat.postMessage": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"ok": false, "error": "channel_not_found"})
		},
	})

	c := NewClient("xoxb-test", slacklib.OptionAPIURL(srv.URL+"/"))
	_, err := c.PostMessage("C404", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestIdentity(t *testing.T) {
	srv := newFakeSlack(t, map[string]http.HandlerFunc{
		"/auth.test": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"ok": true, "user_id": "U0BOT", "user": "sprintbot"})
		},
	})

	c := NewClient("xoxb-test", slacklib.OptionAPIURL(srv.URL+"/"))
	id, name, err := c.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "U0BOT", id)
	assert.Equal(t, "sprintbot", name)
}

func TestIdentityInvalidAuth(t *testing.T) {
	srv := newFakeSlack(t, map[string]http.HandlerFunc{
		"/auth.test": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"ok": false, "error": "invalid_auth"})
		},
	})

	c := NewClient("xoxb-bad", slacklib.OptionAPIURL(srv.URL+"/"))
	_, _, err := c.Identity(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
}
