package domain

import "strings"

// EventTag labels a market event that happened on a given day.
type EventTag string

const (
	EventNone  EventTag = "none"
	EventTOTW  EventTag = "TOTW"
	EventSBC   EventTag = "SBC"
	EventPromo EventTag = "Event"
)

// SyntheticEvents lists the tags the synthetic generator draws from, in draw order.
var SyntheticEvents = []EventTag{EventTOTW, EventSBC, EventPromo}

// String returns the string representation of EventTag.
func (e EventTag) String() string {
	return string(e)
}

// IsEvent reports whether the tag marks an actual event.
// Empty tags and the "none" sentinel (any case) are not events.
func (e EventTag) IsEvent() bool {
	s := strings.TrimSpace(string(e))
	return s != "" && !strings.EqualFold(s, string(EventNone))
}

// PriceMultiplier returns the multiplicative bump the event applies to the price.
func (e EventTag) PriceMultiplier() float64 {
	switch e {
	case EventSBC:
		return 1.10
	case EventTOTW:
		return 1.05
	default:
		return 1.0
	}
}

// NormalizeEvent maps free-text input to an EventTag, folding empty values to EventNone.
func NormalizeEvent(raw string) EventTag {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, string(EventNone)) {
		return EventNone
	}
	return EventTag(s)
}
