package sentry

import (
	"errors"
	"fmt"
)

// ErrMissingAuthorizationCode is returned by ExchangeCode when the caller
// did not supply an authorization code. No network call is made in that
// case.
var ErrMissingAuthorizationCode = errors.New("missing authorization code")

// TokenEndpointError indicates that the upstream token endpoint answered
// with a non-success status. It carries the original status code and
// response body for diagnostics. The exchange is never retried internally;
// the caller decides whether to restart the authorization flow.
type TokenEndpointError struct {
	StatusCode int
	Body       string
}

func (e *TokenEndpointError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// TokenResponseMalformedError indicates that the token endpoint answered
// with a success status but a body that does not match the expected token
// response shape. This is a contract violation, distinct from the
// transient TokenEndpointError.
type TokenResponseMalformedError struct {
	Reason string
}

func (e *TokenResponseMalformedError) Error() string {
	return fmt.Sprintf("malformed token response: %s", e.Reason)
}

// SearchRequestError indicates that the issue search endpoint answered
// with a non-success status.
type SearchRequestError struct {
	StatusCode int
	Body       string
}

func (e *SearchRequestError) Error() string {
	return fmt.Sprintf("issue search returned status %d: %s", e.StatusCode, e.Body)
}

// IssueSchemaError indicates that an element of the search response did
// not validate against the expected issue shape. Validation is
// all-or-nothing: one bad element fails the whole batch.
type IssueSchemaError struct {
	Index  int
	Reason string
}

func (e *IssueSchemaError) Error() string {
	return fmt.Sprintf("issue at index %d failed validation: %s", e.Index, e.Reason)
}

// EventFetchError indicates that fetching the latest event for an issue
// failed. A stack trace is useless without both issue metadata and event
// detail, so a single failed fetch fails the whole report.
type EventFetchError struct {
	IssueID    string
	StatusCode int
	Err        error
}

func (e *EventFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching latest event for issue %s: %v", e.IssueID, e.Err)
	}
	return fmt.Sprintf("fetching latest event for issue %s: status %d", e.IssueID, e.StatusCode)
}

func (e *EventFetchError) Unwrap() error {
	return e.Err
}
