package normalize

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrInvalidJSON is returned when the raw payload cannot be parsed at all.
// A payload that parses but matches no known caption shape is not an error;
// it normalizes to empty text.
var ErrInvalidJSON = errors.New("normalize: payload is not valid JSON")

// Segment is one text fragment inside a caption event. The platform may embed
// literal newlines in the text.
type Segment struct {
	Text      string `json:"utf8"`
	OffsetMs  int64  `json:"tOffsetMs,omitempty"`
	AcAsrConf int    `json:"acAsrConf,omitempty"`
}

// Event is one timed caption block.
type Event struct {
	StartMs    int64     `json:"tStartMs"`
	DurationMs int64     `json:"dDurationMs,omitempty"`
	WindowID   int       `json:"wWinId,omitempty"`
	Segments   []Segment `json:"segs"`
}

// wrapper covers the accepted top-level shapes: an object carrying an events
// list, or (forward compat) an object that is itself shaped like a bare event.
type wrapper struct {
	Events []Event `json:"events"`

	StartMs    int64     `json:"tStartMs"`
	DurationMs int64     `json:"dDurationMs"`
	Segments   []Segment `json:"segs"`
}

// Result is the outcome of normalizing one raw caption payload.
type Result struct {
	CleanText string `json:"clean_text"`
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
}

// Normalize folds a raw caption payload into a single clean text string with
// word and character counts. It is pure: same input, same output, no I/O.
func Normalize(raw string) (*Result, error) {
	events, err := Events(raw)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, ev := range events {
		for _, seg := range ev.Segments {
			b.WriteString(strings.ReplaceAll(seg.Text, "\n", " "))
		}
	}

	clean := b.String()
	return &Result{
		CleanText: clean,
		WordCount: len(strings.Fields(clean)),
		CharCount: utf8.RuneCountInString(clean),
	}, nil
}

// Events parses a raw payload and unwraps all three accepted top-level shapes
// into one flat event sequence, preserving order. Wrappers that match no
// shape are skipped.
func Events(raw string) ([]Event, error) {
	data := []byte(raw)
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}

	var tops []json.RawMessage
	if err := json.Unmarshal(data, &tops); err != nil {
		// Not a sequence: treat the single value as a one-element sequence.
		tops = []json.RawMessage{json.RawMessage(data)}
	}

	var events []Event
	for _, top := range tops {
		var w wrapper
		if err := json.Unmarshal(top, &w); err != nil {
			continue
		}
		switch {
		case w.Events != nil:
			events = append(events, w.Events...)
		case w.Segments != nil:
			events = append(events, Event{
				StartMs:    w.StartMs,
				DurationMs: w.DurationMs,
				Segments:   w.Segments,
			})
		}
	}
	return events, nil
}

// HasEvents is the shape predicate used by capture candidates: the payload
// parses and yields at least one caption event.
func HasEvents(raw string) bool {
	events, err := Events(raw)
	return err == nil && len(events) > 0
}
