// Package observability defines the sink that tool failures are reported
// to. The callers treat it as fire-and-forget: a capture returns an opaque
// event identifier and never an error.
package observability

import (
	"crypto/rand"
	"encoding/hex"

	"go.uber.org/zap"
)

// Reporter accepts errors or messages with optional context and returns
// an opaque event identifier.
type Reporter interface {
	CaptureException(err error, contexts map[string]any) string
	CaptureMessage(msg string, contexts map[string]any) string
}

// LogReporter reports captured events to a zap logger.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a reporter backed by the given zap logger.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// CaptureException logs the error with its contexts and returns the event
// identifier.
func (r *LogReporter) CaptureException(err error, contexts map[string]any) string {
	id := newEventID()
	r.logger.Error("captured exception",
		zap.String("event_id", id),
		zap.Error(err),
		zap.Any("contexts", contexts),
	)
	return id
}

// CaptureMessage logs the message with its contexts and returns the event
// identifier.
func (r *LogReporter) CaptureMessage(msg string, contexts map[string]any) string {
	id := newEventID()
	r.logger.Warn("captured message",
		zap.String("event_id", id),
		zap.String("message", msg),
		zap.Any("contexts", contexts),
	)
	return id
}

// newEventID generates a random 128-bit identifier in hex.
func newEventID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is unrecoverable; a fixed id keeps the
		// capture usable for log correlation.
		return "00000000000000000000000000000000"
	}
	return hex.EncodeToString(b[:])
}
