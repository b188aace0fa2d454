package jira

import (
	"encoding/json"
	"errors"
)

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

func errorsIsKind(err error, kind ErrorKind) bool {
	return errors.Is(err, &ReportError{Kind: kind})
}
