package sentry

import (
	"fmt"
	"strings"
)

// emptyReport is the short-circuit result when the search matched nothing.
// It names the searched filename and the organization for traceability.
func emptyReport(filename, organization string) string {
	return fmt.Sprintf("No unresolved issues found for %q in organization %q.\n", filename, organization)
}

// reportBuilder assembles the Markdown report as an append-only sequence
// of per-issue sections, joined once at the end.
type reportBuilder struct {
	filename    string
	sections    []string
	lastShortID string
}

func newReportBuilder(filename string) *reportBuilder {
	return &reportBuilder{filename: filename}
}

// addIssue appends one issue section: heading, metadata list, then the
// exception and stack-trace blocks if the event carries an exception
// entry. Title and message are untrusted upstream text and are inserted
// verbatim into the fixed template, never interpreted further.
func (b *reportBuilder) addIssue(issue Issue, event *Event) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s: %s\n\n", issue.ShortID, issue.Title)
	fmt.Fprintf(&sb, "- **Issue ID**: %s\n", issue.ShortID)
	fmt.Fprintf(&sb, "- **Last seen**: %s\n", issue.LastSeen)
	fmt.Fprintf(&sb, "- **Occurrences**: %s\n", issue.Count.String())
	fmt.Fprintf(&sb, "- **Permalink**: %s\n", issue.Permalink)

	if exc := event.firstException(); exc != nil {
		fmt.Fprintf(&sb, "\n### Error\n\n**%s**: %s\n", exc.Type, exc.Value)
		if exc.Stacktrace != nil && len(exc.Stacktrace.Frames) > 0 {
			sb.WriteString("\n### Stacktrace\n\n```\n")
			for _, frame := range exc.Stacktrace.Frames {
				fmt.Fprintf(&sb, "%s (line %d)\n", frame.Filename, frame.Lineno)
				if line := frameSourceLine(frame); line != "" {
					sb.WriteString(line + "\n")
				}
			}
			sb.WriteString("```\n")
		}
	}

	b.sections = append(b.sections, sb.String())
	b.lastShortID = issue.ShortID
}

// frameSourceLine joins the context entries whose recorded line number
// equals the frame's own lineno. This deliberately yields just the
// offending line, not the surrounding code.
func frameSourceLine(frame Frame) string {
	var matches []string
	for _, line := range frame.Context {
		if line.Lineno == frame.Lineno {
			matches = append(matches, line.Source)
		}
	}
	return strings.Join(matches, "\n")
}

// String joins the accumulated sections in issue order and appends the
// commit-reference note for the last issue processed.
func (b *reportBuilder) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, "# Errors in %s\n\n", b.filename)
	out.WriteString(strings.Join(b.sections, "\n"))
	if b.lastShortID != "" {
		fmt.Fprintf(&out, "\nTo resolve this issue from a commit, include `Fixes %s` in the commit message.\n", b.lastShortID)
	}
	return out.String()
}
