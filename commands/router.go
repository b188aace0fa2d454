package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justmike1/sprintbot/jira"
)

// UsageError is returned when a recognised command has the wrong arguments.
type UsageError struct {
	Command string
	Usage   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("bad usage of %q: %s", e.Command, e.Usage)
}

const (
	reportUsage = "Usage: `report <board_id> <sprint_id>`"
	helpText    = "I can build sprint reports from Jira.\n" + reportUsage + "\nExample: `report 4978 14090`"
)

type Router struct {
	poster  Poster
	fetcher ReportFetcher
	builder ReportBuilder
	now     func() time.Time
}

func NewRouter(poster Poster, fetcher ReportFetcher, builder ReportBuilder) *Router {
	return &Router{
		poster:  poster,
		fetcher: fetcher,
		builder: builder,
		now:     time.Now,
	}
}

// Handle processes one chat message. Messages that do not mention identity
// are ignored. Recognised and unrecognised commands get exactly one reply;
// report failures are only logged.
func (r *Router) Handle(ctx context.Context, identity, channelID, text string) {
	cmd, args, ok := parseCommand(identity, text)
	if !ok {
		return
	}

	reqID := uuid.NewString()
	log.Printf("[router] req=%s channel=%s command=%q args=%q", reqID, channelID, cmd, args)

	reply, err := r.dispatch(ctx, reqID, cmd, args)
	if err != nil {
		var usage *UsageError
		if !errors.As(err, &usage) {
			log.Printf("[router] req=%s channel=%s %s failed (%s): %v", reqID, channelID, cmd, jira.KindOf(err), err)
			return
		}
		log.Printf("[router] req=%s channel=%s %v", reqID, channelID, err)
		reply = usage.Usage
	}

	if _, err := r.poster.PostMessage(channelID, reply); err != nil {
		log.Printf("[router] req=%s channel=%s failed to send reply: %v", reqID, channelID, err)
		return
	}
	log.Printf("[router] req=%s channel=%s replied (%d bytes)", reqID, channelID, len(reply))
}

func (r *Router) dispatch(ctx context.Context, reqID, cmd string, args []string) (string, error) {
	switch strings.ToLower(cmd) {
	case "report":
		if len(args) < 2 {
			return "", &UsageError{Command: cmd, Usage: reportUsage}
		}
		return r.report(ctx, reqID, args[0], args[1])
	case "", "help":
		return helpText, nil
	default:
		return fmt.Sprintf("I'm not sure what you mean by `%s`", cmd), nil
	}
}

func (r *Router) report(ctx context.Context, reqID, boardID, sprintID string) (string, error) {
	start := time.Now()
	raw, err := r.fetcher.SprintReport(ctx, boardID, sprintID)
	if err != nil {
		return "", fmt.Errorf("fetch sprint report board=%s sprint=%s: %w", boardID, sprintID, err)
	}
	text, err := r.builder.Build(raw, r.now())
	if err != nil {
		return "", fmt.Errorf("build sprint report board=%s sprint=%s: %w", boardID, sprintID, err)
	}
	log.Printf("[router] req=%s built report board=%s sprint=%s in %s",
		reqID, boardID, sprintID, time.Since(start).Round(time.Millisecond))
	return text, nil
}

// parseCommand splits text on whitespace, drops the tokens that mention
// identity, and returns the first remaining token as the command, as typed.
// ok is false when text does not mention identity at all.
func parseCommand(identity, text string) (cmd string, args []string, ok bool) {
	if identity == "" || !strings.Contains(text, identity) {
		return "", nil, false
	}
	var rest []string
	for _, tok := range strings.Fields(text) {
		if strings.Contains(tok, identity) {
			continue
		}
		rest = append(rest, tok)
	}
	if len(rest) == 0 {
		return "", nil, true
	}
	return rest[0], rest[1:], true
}
