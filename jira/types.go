package jira

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SprintReport is the body of the greenhopper sprint report endpoint. Only
// the fields the report reads are decoded, and each of them tolerates
// absence and type mismatches so that decoding never fails on content;
// callers validate what they need.
type SprintReport struct {
	Sprint   *Sprint         `json:"sprint"`
	Contents *SprintContents `json:"contents"`
}

type Sprint struct {
	Name      Text `json:"name"`
	StartDate Text `json:"startDate"`
	EndDate   Text `json:"endDate"`
}

// UnmarshalJSON leaves s empty when the value is not an object.
func (s *Sprint) UnmarshalJSON(b []byte) error {
	type plain Sprint
	var p plain
	decodeObject(b, &p)
	*s = Sprint(p)
	return nil
}

type SprintContents struct {
	CompletedIssues              IssueList    `json:"completedIssues"`
	IncompletedIssues            IssueList    `json:"incompletedIssues"`
	CompletedIssuesEstimateSum   *EstimateSum `json:"completedIssuesEstimateSum"`
	IncompletedIssuesEstimateSum *EstimateSum `json:"incompletedIssuesEstimateSum"`
	AllIssuesEstimateSum         *EstimateSum `json:"allIssuesEstimateSum"`
}

func (c *SprintContents) UnmarshalJSON(b []byte) error {
	type plain SprintContents
	var p plain
	decodeObject(b, &p)
	*c = SprintContents(p)
	return nil
}

// EstimateSum is a {"value": n} object, used for the section totals and for
// an issue's statFieldValue.
type EstimateSum struct {
	Value Number `json:"value"`
}

func (e *EstimateSum) UnmarshalJSON(b []byte) error {
	type plain EstimateSum
	var p plain
	decodeObject(b, &p)
	*e = EstimateSum(p)
	return nil
}

type SprintIssue struct {
	Key               Text               `json:"key"`
	Assignee          Text               `json:"assignee"`
	AssigneeName      Text               `json:"assigneeName"`
	EstimateStatistic *EstimateStatistic `json:"estimateStatistic"`
}

type EstimateStatistic struct {
	StatFieldValue *EstimateSum `json:"statFieldValue"`
}

func (e *EstimateStatistic) UnmarshalJSON(b []byte) error {
	type plain EstimateStatistic
	var p plain
	decodeObject(b, &p)
	*e = EstimateStatistic(p)
	return nil
}

// EstimateSeconds returns the issue's estimate, or 0 when it has none.
func (i SprintIssue) EstimateSeconds() int64 {
	if i.EstimateStatistic == nil || i.EstimateStatistic.StatFieldValue == nil {
		return 0
	}
	v := i.EstimateStatistic.StatFieldValue.Value
	if !v.Valid {
		return 0
	}
	return v.Int64()
}

// IssueList decodes an array of issues. A non-array value decodes as empty
// and elements that are not objects are dropped.
type IssueList []SprintIssue

func (l *IssueList) UnmarshalJSON(b []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	out := make(IssueList, 0, len(raw))
	for _, r := range raw {
		var issue SprintIssue
		if decodeObject(r, &issue) {
			out = append(out, issue)
		}
	}
	*l = out
	return nil
}

// decodeObject decodes b into v when b is a JSON object. Every leaf type in
// this file is tolerant, so a well-formed object always decodes.
func decodeObject(b []byte, v any) bool {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

// Text is a JSON string that tolerates null, absence and non-string values.
// Valid reports whether a string was seen.
type Text struct {
	Value string
	Valid bool
}

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = Text{}
	var s string
	if err := json.Unmarshal(b, &s); err == nil && !bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = Text{Value: s, Valid: true}
	}
	return nil
}

// Number is a JSON number that tolerates null, absence, numeric strings and
// garbage. Valid reports whether a usable value was seen.
type Number struct {
	Value float64
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = Number{Value: f, Valid: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*n = Number{Value: f, Valid: true}
		}
	}
	return nil
}

// Int64 truncates the value toward zero.
func (n Number) Int64() int64 {
	return int64(n.Value)
}
