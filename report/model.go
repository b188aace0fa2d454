package report

import (
	"fmt"
	"time"

	"github.com/justmike1/sprintbot/dates"
	"github.com/justmike1/sprintbot/jira"
)

// Sprint is the validated header and totals of a sprint report.
type Sprint struct {
	Name       string
	Start      time.Time
	End        time.Time
	Completed  time.Duration
	Incomplete time.Duration
	All        time.Duration
}

// Issue is one issue of a sprint. Estimate is zero when Jira had none.
type Issue struct {
	Key          string
	Assignee     string
	AssigneeName string
	Estimate     time.Duration
}

// Data is a sprint report converted to domain values.
type Data struct {
	Sprint     Sprint
	Completed  []Issue
	Incomplete []Issue
}

// FromWire validates a decoded sprint report. Every missing or mistyped
// required field is reported in a single ReportParsingError; dates that are
// present but malformed yield BadDate. Dates are read as wall-clock time in
// loc (UTC when nil).
func FromWire(r *jira.SprintReport, loc *time.Location) (*Data, error) {
	if r == nil {
		return nil, &jira.ReportError{Kind: jira.ReportParsingError, Fields: []string{"sprint", "contents"}}
	}

	var missing []string
	var sp jira.Sprint
	if r.Sprint == nil {
		missing = append(missing, "sprint")
	} else {
		sp = *r.Sprint
		if !sp.Name.Valid {
			missing = append(missing, "sprint.name")
		}
		if !sp.StartDate.Valid {
			missing = append(missing, "sprint.startDate")
		}
		if !sp.EndDate.Valid {
			missing = append(missing, "sprint.endDate")
		}
	}

	var contents jira.SprintContents
	if r.Contents == nil {
		missing = append(missing, "contents")
	} else {
		contents = *r.Contents
		sums := []struct {
			path string
			sum  *jira.EstimateSum
		}{
			{"contents.completedIssuesEstimateSum.value", contents.CompletedIssuesEstimateSum},
			{"contents.incompletedIssuesEstimateSum.value", contents.IncompletedIssuesEstimateSum},
			{"contents.allIssuesEstimateSum.value", contents.AllIssuesEstimateSum},
		}
		for _, s := range sums {
			if s.sum == nil || !s.sum.Value.Valid {
				missing = append(missing, s.path)
			}
		}
	}

	if len(missing) > 0 {
		return nil, &jira.ReportError{Kind: jira.ReportParsingError, Fields: missing}
	}

	start, err := dates.ParseTrackerDateIn(sp.StartDate.Value, loc)
	if err != nil {
		return nil, &jira.ReportError{Kind: jira.BadDate, Err: fmt.Errorf("sprint.startDate: %w", err)}
	}
	end, err := dates.ParseTrackerDateIn(sp.EndDate.Value, loc)
	if err != nil {
		return nil, &jira.ReportError{Kind: jira.BadDate, Err: fmt.Errorf("sprint.endDate: %w", err)}
	}

	return &Data{
		Sprint: Sprint{
			Name:       sp.Name.Value,
			Start:      start,
			End:        end,
			Completed:  seconds(contents.CompletedIssuesEstimateSum.Value.Int64()),
			Incomplete: seconds(contents.IncompletedIssuesEstimateSum.Value.Int64()),
			All:        seconds(contents.AllIssuesEstimateSum.Value.Int64()),
		},
		Completed:  issues(contents.CompletedIssues),
		Incomplete: issues(contents.IncompletedIssues),
	}, nil
}

func issues(in []jira.SprintIssue) []Issue {
	out := make([]Issue, 0, len(in))
	for _, i := range in {
		out = append(out, Issue{
			Key:          i.Key.Value,
			Assignee:     i.Assignee.Value,
			AssigneeName: i.AssigneeName.Value,
			Estimate:     seconds(i.EstimateSeconds()),
		})
	}
	return out
}

func seconds(n int64) time.Duration {
	return time.Duration(n) * time.Second
}
