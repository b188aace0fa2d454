package slack

import (
	"context"
	"errors"
	"sync"
	"testing"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentifier struct {
	id  string
	err error
}

func (f fakeIdentifier) Identity(ctx context.Context) (string, string, error) {
	return f.id, "sprintbot", f.err
}

type fakeAcker struct {
	mu   sync.Mutex
	acks []string
}

func (a *fakeAcker) Ack(req socketmode.Request, payload ...interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, req.EnvelopeID)
}

type received struct {
	identity, channel, text string
}

type recorder struct {
	mu   sync.Mutex
	msgs []received
}

func (r *recorder) handle(ctx context.Context, identity, channelID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, received{identity, channelID, text})
}

type fakeSubmitter struct {
	channels []string
	closed   bool
}

func (f *fakeSubmitter) Submit(channelID string, job func()) bool {
	if f.closed {
		return false
	}
	f.channels = append(f.channels, channelID)
	job()
	return true
}

func newTestSession(t *testing.T, submit Submitter) (*Session, *recorder, *fakeAcker) {
	t.Helper()
	rec := &recorder{}
	ack := &fakeAcker{}
	s := &Session{
		ids:     fakeIdentifier{id: "U0BOT"},
		acker:   ack,
		handler: rec.handle,
		submit:  submit,
	}
	require.NoError(t, s.authenticate(context.Background()))
	return s, rec, ack
}

func messageEvent(envelope string, msg *slackevents.MessageEvent) socketmode.Event {
	return socketmode.Event{
		Type: socketmode.EventTypeEventsAPI,
		Data: slackevents.EventsAPIEvent{
			Type:       slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{Type: "message", Data: msg},
		},
		Request: &socketmode.Request{EnvelopeID: envelope},
	}
}

func TestAuthenticateFailureIsAuthFailure(t *testing.T) {
	s := &Session{ids: fakeIdentifier{err: errors.New("invalid_auth")}}
	err := s.authenticate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailure)
	assert.Empty(t, s.Identity())
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	s := &Session{ids: fakeIdentifier{err: errors.New("invalid_auth")}}
	err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailure)
	assert.Equal(t, Closed, s.State())
}

func TestStateTransitions(t *testing.T) {
	s, _, _ := newTestSession(t, nil)
	assert.Equal(t, Disconnected, s.State())

	s.handleEvent(context.Background(), socketmode.Event{Type: socketmode.EventTypeConnected})
	assert.Equal(t, Connected, s.State())

	s.handleEvent(context.Background(), socketmode.Event{Type: socketmode.EventTypeConnectionError})
	assert.Equal(t, Disconnected, s.State())
	assert.Equal(t, "disconnected", s.State().String())
}

func TestStandardMessageIsForwarded(t *testing.T) {
	sub := &fakeSubmitter{}
	s, rec, ack := newTestSession(t, sub)

	s.handleEvent(context.Background(), messageEvent("env-1", &slackevents.MessageEvent{
		Channel: "C1", User: "U0ALICE", Text: "<@U0BOT> report 1 2",
	}))

	require.Len(t, rec.msgs, 1)
	assert.Equal(t, received{"U0BOT", "C1", "<@U0BOT> report 1 2"}, rec.msgs[0])
	assert.Equal(t, []string{"C1"}, sub.channels)
	assert.Equal(t, []string{"env-1"}, ack.acks)
}

func TestNonStandardMessagesAreIgnored(t *testing.T) {
	s, rec, ack := newTestSession(t, nil)

	for i, msg := range []*slackevents.MessageEvent{
		{Channel: "C1", User: "U0ALICE", Text: "<@U0BOT> report 1 2", SubType: "message_changed"},
		{Channel: "C1", User: "U0ALICE", Text: "<@U0BOT> report 1 2", BotID: "B123"},
		{Channel: "C1", User: "U0BOT", Text: "<@U0BOT> report 1 2"},
		{Channel: "C1", User: "U0ALICE", Text: ""},
	} {
		s.handleEvent(context.Background(), messageEvent(string(rune('a'+i)), msg))
	}

	assert.Empty(t, rec.msgs)
	assert.Len(t, ack.acks, 4, "every events-api envelope is acked")
}

func TestOtherEventsAreAckedAndIgnored(t *testing.T) {
	s, rec, ack := newTestSession(t, nil)

	s.handleEvent(context.Background(), socketmode.Event{
		Type:    socketmode.EventTypeInteractive,
		Request: &socketmode.Request{EnvelopeID: "env-i"},
	})
	s.handleEvent(context.Background(), socketmode.Event{
		Type: socketmode.EventTypeEventsAPI,
		Data: slackevents.EventsAPIEvent{
			Type:       slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{Type: "reaction_added", Data: &slackevents.ReactionAddedEvent{}},
		},
		Request: &socketmode.Request{EnvelopeID: "env-r"},
	})

	assert.Empty(t, rec.msgs)
	assert.Equal(t, []string{"env-i", "env-r"}, ack.acks)
	events, forwarded := s.Stats()
	assert.Equal(t, int64(2), events)
	assert.Zero(t, forwarded)
}

func TestSlashCommandIsForwardedAsMention(t *testing.T) {
	s, rec, ack := newTestSession(t, nil)

	s.handleEvent(context.Background(), socketmode.Event{
		Type:    socketmode.EventTypeSlashCommand,
		Data:    slacklib.SlashCommand{Command: "/sprint", ChannelID: "C7", UserID: "U0ALICE", Text: "report 3 4"},
		Request: &socketmode.Request{EnvelopeID: "env-s"},
	})

	require.Len(t, rec.msgs, 1)
	assert.Equal(t, received{"U0BOT", "C7", "<@U0BOT> report 3 4"}, rec.msgs[0])
	assert.Equal(t, []string{"env-s"}, ack.acks)
}

func TestClosedDispatcherDropsMessage(t *testing.T) {
	s, rec, _ := newTestSession(t, &fakeSubmitter{closed: true})

	s.handleEvent(context.Background(), messageEvent("env-1", &slackevents.MessageEvent{
		Channel: "C1", User: "U0ALICE", Text: "<@U0BOT> report 1 2",
	}))
	assert.Empty(t, rec.msgs)
}
