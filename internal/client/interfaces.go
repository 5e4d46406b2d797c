package client

import (
	"errors"
	"fmt"
	"time"
)

// ApologyText replaces an assistant reply that could not be produced.
const ApologyText = "Sorry, there is a technical issue right now. Please try again later."

var (
	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrAborted is returned by Submit after Stop or Clear. It is never
	// recorded as the error banner.
	ErrAborted = errors.New("request aborted")
	// ErrIncompleteStream means the relay closed the stream before a done or
	// error event.
	ErrIncompleteStream = errors.New("stream ended without a terminal event")
)

// Message is one entry of the conversation. Content only changes while
// Streaming is set.
type Message struct {
	ID        string
	Role      string
	Content   string
	Timestamp time.Time
	Streaming bool
}

// RelayError is a failure reported by the relay, either as an HTTP status or
// as an in-band error event (StatusCode 0).
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("relay error: %s", e.Message)
	}
	return fmt.Sprintf("relay returned %d: %s", e.StatusCode, e.Message)
}
