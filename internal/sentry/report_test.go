package sentry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameSourceLine(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{
			name: "only the matching line is kept",
			frame: Frame{
				Filename: "app.py",
				Lineno:   10,
				Context: []ContextLine{
					{Lineno: 8, Source: "def handler(d):"},
					{Lineno: 9, Source: "    # lookup"},
					{Lineno: 10, Source: "x = d['x']"},
					{Lineno: 11, Source: "return x"},
				},
			},
			want: "x = d['x']",
		},
		{
			name: "no matching line",
			frame: Frame{
				Filename: "app.py",
				Lineno:   5,
				Context: []ContextLine{
					{Lineno: 8, Source: "def handler(d):"},
				},
			},
			want: "",
		},
		{
			name: "multiple matches are joined",
			frame: Frame{
				Lineno: 2,
				Context: []ContextLine{
					{Lineno: 2, Source: "a"},
					{Lineno: 2, Source: "b"},
				},
			},
			want: "a\nb",
		},
		{
			name:  "empty context",
			frame: Frame{Lineno: 1},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, frameSourceLine(tt.frame))
		})
	}
}

func TestReportBuilderAppendsSections(t *testing.T) {
	rb := newReportBuilder("app.py")

	rb.addIssue(Issue{ID: "1", ShortID: "P-1", Title: "KeyError", Count: "5"}, &Event{})
	rb.addIssue(Issue{ID: "2", ShortID: "P-2", Title: "ValueError", Count: "3"}, &Event{})

	report := rb.String()

	// Both sections survive: the accumulator appends, never overwrites.
	assert.Contains(t, report, "## P-1: KeyError")
	assert.Contains(t, report, "## P-2: ValueError")
	assert.Less(t, strings.Index(report, "P-1"), strings.Index(report, "P-2"))

	// The commit-reference note is scoped to the last issue processed.
	assert.Contains(t, report, "Fixes P-2")
	assert.NotContains(t, report, "Fixes P-1")
}

func TestReportBuilderStackBlock(t *testing.T) {
	rb := newReportBuilder("app.py")
	rb.addIssue(
		Issue{ID: "123", ShortID: "PROJ-1", Title: "KeyError", Count: "5", LastSeen: "2024-01-02T03:04:05Z", Permalink: "https://sentry.io/issues/123/"},
		&Event{Entries: []EventEntry{{
			Type: entryTypeException,
			Data: []byte(`{"values":[{"type":"KeyError","value":"'x'","stacktrace":{"frames":[{"filename":"app.py","lineno":10,"context":[[9,"d = load()"],[10,"x = d['x']"],[11,"print(x)"]]}]}}]}`),
		}}},
	)

	report := rb.String()

	assert.Contains(t, report, "### Error\n\n**KeyError**: 'x'")
	assert.Contains(t, report, "app.py (line 10)\nx = d['x']")
	assert.NotContains(t, report, "d = load()", "surrounding context lines are filtered out")
	assert.NotContains(t, report, "print(x)")
}

func TestEmptyReportNamesFilenameAndOrganization(t *testing.T) {
	report := emptyReport("app.py", "sentry")
	assert.Contains(t, report, `"app.py"`)
	assert.Contains(t, report, `"sentry"`)
}
