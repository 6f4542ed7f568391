package sentry

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// resultLimit bounds how many issues one search returns and therefore how
// many event fetches one tool call can trigger.
const resultLimit = 3

// SearchRequest are the inputs to SearchErrorsInFile. The access token and
// organization slug are explicit per-call inputs, not process-wide state.
type SearchRequest struct {
	Filename     string
	AccessToken  string
	Organization string
}

// SearchErrorsInFile finds unresolved issues whose stack traces touch the
// given filename, fetches the latest event for each, and renders a
// Markdown incident report.
//
// The filename matches on path suffix: the query uses a */ wildcard
// prefix so a bare basename matches nested paths. Event fetches happen
// sequentially in the order the upstream returned the issues; the first
// failure aborts the whole report. An event without an exception entry
// contributes no stack block and is not an error.
func (c *Client) SearchErrorsInFile(ctx context.Context, req SearchRequest) (string, error) {
	query := fmt.Sprintf(`stack.filename:"*/%s" status:unresolved`, req.Filename)

	issues, err := c.searchIssues(ctx, req.Organization, req.AccessToken, query, resultLimit)
	if err != nil {
		return "", err
	}

	if len(issues) == 0 {
		return emptyReport(req.Filename, req.Organization), nil
	}

	rb := newReportBuilder(req.Filename)
	for _, issue := range issues {
		event, err := c.latestEvent(ctx, issue.ID, req.AccessToken)
		if err != nil {
			return "", err
		}
		rb.addIssue(issue, event)
	}

	return rb.String(), nil
}

// searchIssues queries the organization's issue search endpoint. The
// collapse parameters ask the upstream to omit heavy aggregate fields the
// report never reads; that is a bandwidth optimization, not a correctness
// requirement.
func (c *Client) searchIssues(ctx context.Context, organization, accessToken, query string, limit int) ([]Issue, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params["collapse"] = []string{"stats", "lifetime", "base", "filtered"}

	path := fmt.Sprintf("/api/0/organizations/%s/issues/", organization)
	status, body, err := c.get(ctx, path, params, accessToken)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &SearchRequestError{StatusCode: status, Body: string(body)}
	}

	var issues []Issue
	if err := decodeJSON(body, &issues, "issue search response"); err != nil {
		return nil, &IssueSchemaError{Index: -1, Reason: err.Error()}
	}

	// All-or-nothing: a single invalid element fails the whole batch.
	for i := range issues {
		if err := issues[i].validate(); err != nil {
			return nil, &IssueSchemaError{Index: i, Reason: err.Error()}
		}
	}

	return issues, nil
}

// latestEvent fetches the latest event for one issue. The returned event
// corresponds 1:1 to the issue whose id built the URL; the pipeline never
// reuses an event across issues.
func (c *Client) latestEvent(ctx context.Context, issueID, accessToken string) (*Event, error) {
	path := fmt.Sprintf("/api/0/issues/%s/events/latest/", issueID)
	status, body, err := c.get(ctx, path, nil, accessToken)
	if err != nil {
		return nil, &EventFetchError{IssueID: issueID, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &EventFetchError{IssueID: issueID, StatusCode: status}
	}

	var event Event
	if err := decodeJSON(body, &event, "event response"); err != nil {
		return nil, &EventFetchError{IssueID: issueID, Err: err}
	}

	return &event, nil
}
