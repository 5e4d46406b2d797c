package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"PCHAT/relay/internal/chatbot"
)

const maxRecordSize = 1 << 20

// StreamDecodeError reports a record whose payload is not a valid event.
// EventReader logs and skips such records.
type StreamDecodeError struct {
	Record string
	Err    error
}

func (e *StreamDecodeError) Error() string {
	return fmt.Sprintf("malformed stream record %q: %v", e.Record, e.Err)
}

func (e *StreamDecodeError) Unwrap() error { return e.Err }

// EventReader decodes text-event-stream records. Records may arrive split
// across any number of reads; a record is only decoded once its terminating
// blank line has been seen.
type EventReader struct {
	scanner *bufio.Scanner
}

func NewEventReader(r io.Reader) *EventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	return &EventReader{scanner: scanner}
}

// Next returns the next event. It returns io.EOF when the stream ends; a
// trailing record without its blank line is dropped.
func (er *EventReader) Next() (chatbot.StreamEvent, error) {
	var data []string
	for er.scanner.Scan() {
		line := strings.TrimSuffix(er.scanner.Text(), "\r")

		if line == "" {
			if len(data) == 0 {
				continue
			}
			record := strings.Join(data, "\n")
			data = data[:0]

			ev, err := decodeRecord(record)
			if err != nil {
				slog.Warn("skipping stream record", "error", err)
				continue
			}
			return ev, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(value, " "))
		}
	}

	if err := er.scanner.Err(); err != nil {
		return chatbot.StreamEvent{}, err
	}
	if len(data) > 0 {
		slog.Debug("discarding incomplete trailing record", "bytes", len(strings.Join(data, "\n")))
	}
	return chatbot.StreamEvent{}, io.EOF
}

func decodeRecord(record string) (chatbot.StreamEvent, error) {
	var ev chatbot.StreamEvent
	if err := json.Unmarshal([]byte(record), &ev); err != nil {
		return ev, &StreamDecodeError{Record: record, Err: err}
	}
	switch ev.Type {
	case chatbot.EventContent, chatbot.EventDone, chatbot.EventError:
		return ev, nil
	default:
		return ev, &StreamDecodeError{Record: record, Err: fmt.Errorf("unknown event type %q", ev.Type)}
	}
}
