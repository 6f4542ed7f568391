package sentry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSentry serves the issue search and latest-event endpoints from
// canned JSON and records the order of event fetches.
type mockSentry struct {
	t *testing.T

	issuesStatus int
	issuesBody   string

	// events maps issue id to the latest-event JSON body.
	events map[string]string
	// eventStatus, when non-zero, forces that status on every event fetch.
	eventStatus int

	fetchedIssueIDs []string
	lastSearchQuery string
	lastLimit       string
	lastCollapse    []string
	lastAuth        string
}

func (m *mockSentry) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.lastAuth = r.Header.Get("Authorization")

		if strings.Contains(r.URL.Path, "/events/latest/") {
			parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
			// .../api/0/issues/{id}/events/latest
			issueID := parts[len(parts)-3]
			m.fetchedIssueIDs = append(m.fetchedIssueIDs, issueID)

			if m.eventStatus != 0 {
				w.WriteHeader(m.eventStatus)
				return
			}
			body, ok := m.events[issueID]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(body))
			return
		}

		m.lastSearchQuery = r.URL.Query().Get("query")
		m.lastLimit = r.URL.Query().Get("limit")
		m.lastCollapse = r.URL.Query()["collapse"]

		if m.issuesStatus != 0 && m.issuesStatus != http.StatusOK {
			w.WriteHeader(m.issuesStatus)
			_, _ = w.Write([]byte(m.issuesBody))
			return
		}
		_, _ = w.Write([]byte(m.issuesBody))
	}))
}

func issueJSON(id, shortID, title string, count int) string {
	return fmt.Sprintf(`{"id":%q,"shortId":%q,"title":%q,"lastSeen":"2024-01-02T03:04:05Z","count":%d,"permalink":"https://sentry.io/issues/%s/"}`,
		id, shortID, title, count, id)
}

func exceptionEventJSON(excType, excValue, filename string, lineno int, context string) string {
	event := fmt.Sprintf(`{"entries":[{"type":"exception","data":{"values":[{"type":%q,"value":%q,"stacktrace":{"frames":[{"filename":%q,"lineno":%d,"context":%s}]}}]}}]}`,
		excType, excValue, filename, lineno, context)
	return event
}

func TestSearchErrorsInFileNoIssues(t *testing.T) {
	mock := &mockSentry{t: t, issuesBody: `[]`}
	srv := mock.server()
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	report, err := client.SearchErrorsInFile(context.Background(), SearchRequest{
		Filename:     "app.py",
		AccessToken:  "tok",
		Organization: "sentry",
	})
	require.NoError(t, err)

	assert.Contains(t, report, "app.py")
	assert.Contains(t, report, "sentry")
	assert.Contains(t, report, "No unresolved issues found")
	assert.Empty(t, mock.fetchedIssueIDs, "no event fetch may happen for an empty result")
}

func TestSearchErrorsInFileQueryConstruction(t *testing.T) {
	mock := &mockSentry{t: t, issuesBody: `[]`}
	srv := mock.server()
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := client.SearchErrorsInFile(context.Background(), SearchRequest{
		Filename:     "app.py",
		AccessToken:  "tok-42",
		Organization: "sentry",
	})
	require.NoError(t, err)

	assert.Equal(t, `stack.filename:"*/app.py" status:unresolved`, mock.lastSearchQuery)
	assert.Equal(t, "3", mock.lastLimit)
	assert.ElementsMatch(t, []string{"stats", "lifetime", "base", "filtered"}, mock.lastCollapse)
	assert.Equal(t, "Bearer tok-42", mock.lastAuth)
}

func TestSearchErrorsInFileFetchesEventsInOrder(t *testing.T) {
	issues := fmt.Sprintf("[%s,%s,%s]",
		issueJSON("31", "PROJ-31", "TypeError", 2),
		issueJSON("7", "PROJ-7", "ValueError", 9),
		issueJSON("19", "PROJ-19", "KeyError", 1),
	)
	mock := &mockSentry{
		t:          t,
		issuesBody: issues,
		events: map[string]string{
			"31": `{"entries":[]}`,
			"7":  `{"entries":[]}`,
			"19": `{"entries":[]}`,
		},
	}
	srv := mock.server()
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	report, err := client.SearchErrorsInFile(context.Background(), SearchRequest{
		Filename:     "app.py",
		AccessToken:  "tok",
		Organization: "sentry",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"31", "7", "19"}, mock.fetchedIssueIDs,
		"exactly one event fetch per issue, in upstream order")

	// Sections keep the upstream order too.
	first := strings.Index(report, "PROJ-31")
	second := strings.Index(report, "PROJ-7")
	third := strings.Index(report, "PROJ-19")
	require.True(t, first >= 0 && second >= 0 && third >= 0)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestSearchErrorsInFileEventWithoutException(t *testing.T) {
	mock := &mockSentry{
		t:          t,
		issuesBody: "[" + issueJSON("5", "PROJ-5", "SomeError", 3) + "]",
		events: map[string]string{
			"5": `{"entries":[{"type":"breadcrumbs","data":{}}]}`,
		},
	}
	srv := mock.server()
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	report, err := client.SearchErrorsInFile(context.Background(), SearchRequest{
		Filename:     "app.py",
		AccessToken:  "tok",
		Organization: "sentry",
	})
	require.NoError(t, err)

	assert.Contains(t, report, "## PROJ-5: SomeError")
	assert.NotContains(t, report, "### Stacktrace")
	assert.NotContains(t, report, "### Error")
}

func TestSearchErrorsInFileSearchFailure(t *testing.T) {
	mock := &mockSentry{t: t, issuesStatus: http.StatusForbidden, issuesBody: `{"detail":"denied"}`}
	srv := mock.server()
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := client.SearchErrorsInFile(context.Background(), SearchRequest{
		Filename:     "app.py",
		AccessToken:  "tok",
		Organization: "sentry",
	})

	var searchErr *SearchRequestError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, http.StatusForbidden, searchErr.StatusCode)
	assert.Contains(t, searchErr.Body, "denied")
}

func TestSearchErrorsInFileSchemaViolation(t *testing.T) {
	// Second element is missing its id: the whole batch must fail and no
	// event fetch may happen.
	issues := fmt.Sprintf(`[%s,{"shortId":"PROJ-2","title":"Broken"}]`, issueJSON("1", "PROJ-1", "KeyError", 5))
	mock := &mockSentry{t: t, issuesBody: issues}
	srv := mock.server()
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := client.SearchErrorsInFile(context.Background(), SearchRequest{
		Filename:     "app.py",
		AccessToken:  "tok",
		Organization: "sentry",
	})

	var schemaErr *IssueSchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, 1, schemaErr.Index)
	assert.Empty(t, mock.fetchedIssueIDs)
}

func TestSearchErrorsInFileEventFetchFailure(t *testing.T) {
	mock := &mockSentry{
		t:           t,
		issuesBody:  "[" + issueJSON("8", "PROJ-8", "OSError", 1) + "]",
		eventStatus: http.StatusBadGateway,
	}
	srv := mock.server()
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, err := client.SearchErrorsInFile(context.Background(), SearchRequest{
		Filename:     "app.py",
		AccessToken:  "tok",
		Organization: "sentry",
	})

	var fetchErr *EventFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "8", fetchErr.IssueID)
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
}

func TestSearchErrorsInFileEndToEnd(t *testing.T) {
	mock := &mockSentry{
		t:          t,
		issuesBody: "[" + issueJSON("123", "PROJ-1", "KeyError", 5) + "]",
		events: map[string]string{
			"123": exceptionEventJSON("KeyError", "'x'", "app.py", 10, `[[10,"x = d['x']"]]`),
		},
	}
	srv := mock.server()
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, HTTPClient: srv.Client()})
	report, err := client.SearchErrorsInFile(context.Background(), SearchRequest{
		Filename:     "app.py",
		AccessToken:  "tok",
		Organization: "sentry",
	})
	require.NoError(t, err)

	assert.Contains(t, report, "## PROJ-1: KeyError")
	assert.Contains(t, report, "**Occurrences**: 5")
	assert.Contains(t, report, "https://sentry.io/issues/123/")
	assert.Contains(t, report, "**KeyError**: 'x'")
	assert.Contains(t, report, "app.py (line 10)\nx = d['x']")
	assert.Contains(t, report, "Fixes PROJ-1")
}

func TestIssueCountAcceptsStringAndNumber(t *testing.T) {
	// The upstream serializes counts inconsistently across endpoints.
	for _, raw := range []string{`5`, `"5"`} {
		var issue Issue
		body := fmt.Sprintf(`{"id":"1","shortId":"P-1","title":"T","count":%s}`, raw)
		require.NoError(t, json.Unmarshal([]byte(body), &issue))
		assert.Equal(t, "5", issue.Count.String())
	}
}
