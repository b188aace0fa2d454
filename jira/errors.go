package jira

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind identifies the pipeline stage a ReportError came from.
type ErrorKind int

const (
	// BadDate means a sprint date could not be parsed.
	BadDate ErrorKind = iota + 1
	// ReportParsingError means the response body or a required field was unusable.
	ReportParsingError
	// FailedRequest means the REST call to Jira failed.
	FailedRequest
)

func (k ErrorKind) String() string {
	switch k {
	case BadDate:
		return "bad date"
	case ReportParsingError:
		return "report parsing error"
	case FailedRequest:
		return "failed request"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ReportError is the typed failure of one sprint report run.
type ReportError struct {
	Kind ErrorKind
	// Fields lists the missing or invalid JSON paths for ReportParsingError.
	Fields []string
	Err    error
}

func (e *ReportError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if len(e.Fields) > 0 {
		sb.WriteString(": missing or invalid ")
		sb.WriteString(strings.Join(e.Fields, ", "))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone: errors.Is(err, &ReportError{Kind: BadDate}).
func (e *ReportError) Is(target error) bool {
	t, ok := target.(*ReportError)
	return ok && t.Kind == e.Kind && t.Err == nil && t.Fields == nil
}

// KindOf returns the ErrorKind of err, or 0 when err is not a ReportError.
func KindOf(err error) ErrorKind {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

func failedRequest(format string, args ...any) error {
	return &ReportError{Kind: FailedRequest, Err: fmt.Errorf(format, args...)}
}
