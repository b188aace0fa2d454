package slack

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// ErrAuthFailure means the bot could not resolve its own identity at startup.
var ErrAuthFailure = errors.New("slack authentication failed")

// State is the lifecycle of a Session.
type State int32

const (
	Disconnected State = iota
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// MessageHandler receives every standard message. identity is the bot's own
// user ID, used for mention detection.
type MessageHandler func(ctx context.Context, identity, channelID, text string)

// Submitter schedules work for a channel. When nil, messages are handled
// inline on the event loop.
type Submitter interface {
	Submit(channelID string, job func()) bool
}

type identifier interface {
	Identity(ctx context.Context) (userID, name string, err error)
}

type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

// Session connects to Slack via Socket Mode (outbound WebSocket), resolves
// the bot identity and forwards qualifying messages to a handler.
type Session struct {
	smClient *socketmode.Client
	ids      identifier
	acker    acker
	handler  MessageHandler
	submit   Submitter
	debug    bool

	identity   string // written once in Run before events are read
	name       string
	published  atomic.Value // identity, for readers outside the event loop
	state      atomic.Int32
	eventCount atomic.Int64
	forwarded  atomic.Int64
}

// NewSession creates a Socket Mode session.
// appToken is the Slack app-level token (xapp-...) with connections:write scope.
// botToken is the normal bot token (xoxb-...).
// Set env SOCKET_MODE_DEBUG=1 to enable verbose wire-level logging.
func NewSession(appToken, botToken string, handler MessageHandler, submit Submitter) *Session {
	debug := os.Getenv("SOCKET_MODE_DEBUG") == "1"

	apiOpts := []slacklib.Option{
		slacklib.OptionAppLevelToken(appToken),
	}
	if debug {
		apiOpts = append(apiOpts, slacklib.OptionDebug(true))
		apiOpts = append(apiOpts, slacklib.OptionLog(log.New(os.Stdout, "[slack-api] ", log.LstdFlags)))
	}

	client := NewClient(botToken, apiOpts...)

	smOpts := []socketmode.Option{}
	if debug {
		smOpts = append(smOpts, socketmode.OptionDebug(true))
		smOpts = append(smOpts, socketmode.OptionLog(log.New(os.Stdout, "[socket-wire] ", log.LstdFlags)))
	}

	smClient := socketmode.New(client.api, smOpts...)

	return &Session{
		smClient: smClient,
		ids:      client,
		acker:    smClient,
		handler:  handler,
		submit:   submit,
		debug:    debug,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Identity returns the bot user ID, empty until Run has authenticated.
func (s *Session) Identity() string {
	id, _ := s.published.Load().(string)
	return id
}

// Stats returns the number of events seen and messages forwarded.
func (s *Session) Stats() (events, forwarded int64) {
	return s.eventCount.Load(), s.forwarded.Load()
}

// Run authenticates, then processes events until ctx is cancelled or the
// connection gives up. An identity failure returns an error wrapping
// ErrAuthFailure and is meant to be fatal.
func (s *Session) Run(ctx context.Context) error {
	defer s.setState(Closed)

	if err := s.authenticate(ctx); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("[socket-mode] connecting to Slack (debug=%v)...", s.debug)
		errc <- s.smClient.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[socket-mode] shutting down (events processed: %d)", s.eventCount.Load())
			return nil
		case err := <-errc:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("socket mode: %w", err)
			}
			return nil
		case evt, ok := <-s.smClient.Events:
			if !ok {
				log.Printf("[socket-mode] event channel closed, listener stopped")
				return nil
			}
			s.handleEvent(ctx, evt)
		}
	}
}

func (s *Session) authenticate(ctx context.Context) error {
	id, name, err := s.ids.Identity(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	s.identity = id
	s.name = name
	s.published.Store(id)
	log.Printf("[socket-mode] authenticated as %q, my user ID is %s", name, id)
	return nil
}

func (s *Session) setState(st State) {
	if prev := State(s.state.Swap(int32(st))); prev != st {
		log.Printf("[socket-mode] state %s -> %s", prev, st)
	}
}

func (s *Session) ack(evt socketmode.Event, payload ...interface{}) {
	if evt.Request != nil {
		s.acker.Ack(*evt.Request, payload...)
	}
}

// handleEvent processes one Socket Mode event.
func (s *Session) handleEvent(ctx context.Context, evt socketmode.Event) {
	s.eventCount.Add(1)

	switch evt.Type {
	case socketmode.EventTypeConnecting:
		// Only log if we were previously connected (suppress initial spam).
		if s.State() == Connected {
			log.Printf("[socket-mode] reconnecting...")
		}

	case socketmode.EventTypeConnected:
		s.setState(Connected)

	case socketmode.EventTypeConnectionError, socketmode.EventTypeDisconnect:
		s.setState(Disconnected)
		log.Printf("[socket-mode] connection lost (%s), will retry...", evt.Type)

	case socketmode.EventTypeHello:
		log.Printf("[socket-mode] received hello from Slack")

	case socketmode.EventTypeEventsAPI:
		// Acknowledge the event immediately to prevent Slack retries.
		s.ack(evt)

		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			log.Printf("[socket-mode] WARNING: EventsAPI event data is %T (expected slackevents.EventsAPIEvent), skipping",
				evt.Data)
			return
		}
		s.handleEventsAPI(ctx, eventsAPIEvent)

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slacklib.SlashCommand)
		if !ok {
			log.Printf("[socket-mode] WARNING: slash command data is %T (expected slack.SlashCommand), skipping", evt.Data)
			s.ack(evt)
			return
		}
		s.ack(evt)

		log.Printf("[socket-mode] slash command: command=%s channel=%s user=%s text=%q",
			cmd.Command, cmd.ChannelID, cmd.UserID, truncate(cmd.Text, 80))
		// Slash commands address the bot implicitly.
		s.forward(ctx, cmd.ChannelID, "<@"+s.identity+"> "+cmd.Text)

	default:
		// Acknowledge unknown event types to avoid retries.
		s.ack(evt)
	}
}

// handleEventsAPI processes Events API payloads delivered via Socket Mode.
func (s *Session) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		log.Printf("[socket-mode] events-api: skipping non-callback event type %q", event.Type)
		return
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		s.handleMessage(ctx, ev)
	default:
		if s.debug {
			log.Printf("[socket-mode] events-api: ignoring inner event type %T", ev)
		}
	}
}

// handleMessage forwards standard user messages only.
func (s *Session) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Only handle regular user messages (no subtypes like message_changed, bot_message, etc.).
	if ev.SubType != "" {
		return
	}
	if ev.BotID != "" {
		return
	}
	if ev.User == s.identity {
		return
	}
	if ev.Text == "" {
		return
	}
	s.forward(ctx, ev.Channel, ev.Text)
}

func (s *Session) forward(ctx context.Context, channelID, text string) {
	s.forwarded.Add(1)
	identity := s.identity
	job := func() { s.handler(ctx, identity, channelID, text) }

	if s.submit == nil {
		job()
		return
	}
	if !s.submit.Submit(channelID, job) {
		log.Printf("[socket-mode] dropped message for channel=%s: dispatcher closed", channelID)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("…(%d more)", len(s)-max)
}
