package sentry

import (
	"encoding/json"
	"fmt"
)

// TokenResponse is the validated shape of the upstream token endpoint's
// JSON body. The access token is treated as opaque credential material by
// the rest of the package; its secure storage and lifecycle belong to the
// caller of ExchangeCode.
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresIn    json.Number     `json:"expires_in,omitempty"`
	ExpiresAt    string          `json:"expires_at,omitempty"`
	Scope        string          `json:"scope,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
}

// validate checks the required fields of a token response per the
// upstream contract.
func (t *TokenResponse) validate() error {
	if t.AccessToken == "" {
		return fmt.Errorf("missing required field: access_token")
	}
	return nil
}

// Issue is one upstream issue matching a search query. It is an immutable
// snapshot; nothing in this package caches it.
type Issue struct {
	ID        string      `json:"id"`
	ShortID   string      `json:"shortId"`
	Title     string      `json:"title"`
	LastSeen  string      `json:"lastSeen"`
	Count     json.Number `json:"count"`
	Permalink string      `json:"permalink"`
}

// validate checks the fields the report depends on. Query semantics
// (unresolved status, filename match) are enforced upstream; only the
// shape is validated here.
func (i *Issue) validate() error {
	if i.ID == "" {
		return fmt.Errorf("missing required field: id")
	}
	if i.ShortID == "" {
		return fmt.Errorf("missing required field: shortId")
	}
	if i.Title == "" {
		return fmt.Errorf("missing required field: title")
	}
	return nil
}

// Event is the latest occurrence of one issue.
type Event struct {
	Entries []EventEntry `json:"entries"`
}

// EventEntry is a tagged variant; only the "exception" variant is
// consumed. The payload is kept raw and decoded on demand.
type EventEntry struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// entryTypeException is the tag of the only entry variant the report
// consumes.
const entryTypeException = "exception"

// ExceptionPayload is the data of an exception-variant entry.
type ExceptionPayload struct {
	Values []ExceptionValue `json:"values"`
}

// ExceptionValue is one exception in an event, with its stack trace.
type ExceptionValue struct {
	Type       string      `json:"type"`
	Value      string      `json:"value"`
	Stacktrace *Stacktrace `json:"stacktrace"`
}

// Stacktrace holds the ordered frames of one exception.
type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

// Frame is a single stack frame. Context is the ordered sequence of
// (line number, source line) pairs surrounding the frame's execution
// point.
type Frame struct {
	Filename string        `json:"filename"`
	Lineno   int           `json:"lineno"`
	Context  []ContextLine `json:"context"`
}

// ContextLine is one (line number, source line) pair. The upstream wire
// format is a heterogeneous two-element JSON array, e.g. [10, "x = d['x']"].
type ContextLine struct {
	Lineno int
	Source string
}

func (c *ContextLine) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("context line must be a JSON array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("context line must have exactly 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Lineno); err != nil {
		return fmt.Errorf("context line number: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.Source); err != nil {
		return fmt.Errorf("context line source: %w", err)
	}
	return nil
}

func (c ContextLine) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{c.Lineno, c.Source})
}

// firstException returns the exception payload of the first
// exception-variant entry, or nil if the event has none. A decode failure
// on a tagged exception entry is treated the same as absence: the issue
// simply contributes no stack trace to the report.
func (e *Event) firstException() *ExceptionValue {
	for _, entry := range e.Entries {
		if entry.Type != entryTypeException {
			continue
		}
		var payload ExceptionPayload
		if err := json.Unmarshal(entry.Data, &payload); err != nil {
			return nil
		}
		if len(payload.Values) == 0 {
			return nil
		}
		return &payload.Values[0]
	}
	return nil
}
