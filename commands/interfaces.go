package commands

import (
	"context"
	"time"

	"github.com/justmike1/sprintbot/jira"
)

// Poster sends a message to a chat channel.
type Poster interface {
	PostMessage(channelID, text string) (string, error)
}

// ReportFetcher retrieves a raw sprint report.
type ReportFetcher interface {
	SprintReport(ctx context.Context, boardID, sprintID string) (*jira.SprintReport, error)
}

// ReportBuilder renders a raw sprint report.
type ReportBuilder interface {
	Build(raw *jira.SprintReport, now time.Time) (string, error)
}
