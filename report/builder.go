// Package report turns Jira sprint report data into the text the bot posts.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/justmike1/sprintbot/dates"
	"github.com/justmike1/sprintbot/jira"
	"github.com/justmike1/sprintbot/roster"
)

// Reference selects the instant "time remaining" is measured from.
type Reference int

const (
	FromNow Reference = iota
	FromStart
)

// ParseReference maps the time_remaining_from config value.
func ParseReference(s string) (Reference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "now":
		return FromNow, nil
	case "start":
		return FromStart, nil
	default:
		return FromNow, fmt.Errorf("unknown time reference %q (want \"now\" or \"start\")", s)
	}
}

func (r Reference) String() string {
	if r == FromStart {
		return "start"
	}
	return "now"
}

// Options configures rendering.
type Options struct {
	// BrowseURL returns the link for an issue key; nil omits links.
	BrowseURL func(key string) string
	Reference Reference
	// Location is the Jira instance's time zone; nil means UTC.
	Location *time.Location
}

// Builder renders reports for a fixed roster.
type Builder struct {
	roster *roster.Roster
	opts   Options
}

func NewBuilder(r *roster.Roster, opts Options) *Builder {
	return &Builder{roster: r, opts: opts}
}

// Build validates raw and renders it. now is only used when the reference is
// FromNow; the output is fully determined by raw, the roster and now.
func (b *Builder) Build(raw *jira.SprintReport, now time.Time) (string, error) {
	data, err := FromWire(raw, b.opts.Location)
	if err != nil {
		return "", err
	}
	return b.Render(data, now), nil
}

// Render formats already-validated data.
func (b *Builder) Render(d *Data, now time.Time) string {
	sections := []string{
		b.header(d.Sprint, now),
		summary(d),
		b.sizing(d),
		b.breakdown("Completed", d.Completed),
		b.breakdown("Incomplete", d.Incomplete),
	}
	return strings.Join(sections, "\n\n")
}

func (b *Builder) header(s Sprint, now time.Time) string {
	ref := now
	if b.opts.Reference == FromStart {
		ref = s.Start
	}
	days := int64(s.End.Sub(ref) / (24 * time.Hour))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Report for Sprint: %s\n", s.Name)
	fmt.Fprintf(&sb, "Sprint Started: %s\n", dates.PrettyDate(s.Start))
	switch {
	case s.End.Before(ref) && days == 0:
		fmt.Fprintf(&sb, "Sprint Ended less than a day ago on %s", dates.PrettyDate(s.End))
	case s.End.Before(ref):
		fmt.Fprintf(&sb, "Sprint Ended %d day(s) ago on %s", -days, dates.PrettyDate(s.End))
	default:
		fmt.Fprintf(&sb, "Sprint Ends in: %d day(s) on %s", days, dates.PrettyDate(s.End))
	}
	return sb.String()
}

func summary(d *Data) string {
	comp := hours(d.Sprint.Completed)
	incomp := hours(d.Sprint.Incomplete)
	total := hours(d.Sprint.All)
	return fmt.Sprintf("Completed: %dh (%s), %d Issues\nIncomplete: %dh (%s), %d Issues",
		comp, percent(comp, total), len(d.Completed),
		incomp, percent(incomp, total), len(d.Incomplete))
}

func (b *Builder) sizing(d *Data) string {
	var lines []string
	for _, u := range b.roster.Names() {
		done := assignedTo(d.Completed, u)
		open := assignedTo(d.Incomplete, u)
		n := len(done) + len(open)
		if n == 0 {
			continue
		}
		comp := hours(sumEstimates(done))
		incomp := hours(sumEstimates(open))
		total := comp + incomp
		lines = append(lines, fmt.Sprintf("%s has %d hours left of %d (%s) for %d issues",
			u, incomp, total, percent(comp, total), n))
	}
	if len(lines) == 0 {
		return "Sprint Sizing:\nNothing in Sprint Sizing :("
	}
	return "Sprint Sizing:\n" + strings.Join(lines, "\n")
}

func (b *Builder) breakdown(name string, issues []Issue) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d)\n", name, len(issues))
	if len(issues) == 0 {
		fmt.Fprintf(&sb, "Nothing in %s :(", name)
		return sb.String()
	}
	for i, is := range issues {
		if i > 0 {
			sb.WriteString("\n")
		}
		who := is.AssigneeName
		if who == "" {
			who = "Unassigned"
		}
		fmt.Fprintf(&sb, "`%s` (%s)", is.Key, who)
		if b.opts.BrowseURL != nil {
			fmt.Fprintf(&sb, " - %s", b.opts.BrowseURL(is.Key))
		}
	}
	return sb.String()
}

// assignedTo matches the roster name against the Jira username or the
// display name, exactly.
func assignedTo(issues []Issue, user string) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Assignee == user || i.AssigneeName == user {
			out = append(out, i)
		}
	}
	return out
}

func sumEstimates(issues []Issue) time.Duration {
	var total time.Duration
	for _, i := range issues {
		total += i.Estimate
	}
	return total
}

// hours truncates to whole hours.
func hours(d time.Duration) int64 {
	return int64(d / time.Hour)
}

// percent renders part/total with one decimal, or N/A when total is zero.
func percent(part, total int64) string {
	if total == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}
