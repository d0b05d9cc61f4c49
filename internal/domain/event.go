package domain

import "time"

// EventType is the stored category code of a delivery event.
type EventType int

const (
	Processed EventType = iota + 1
	Dropped
	Delivered
	Deferred
	Bounce
	Opened
	Clicked
	SpamReport
	Unsubscribe
	GroupUnsubscribe
	GroupResubscribe
)

// ParseEventType maps a raw provider event tag to its category.
// Matching is exact: no case folding, no synonyms.
func ParseEventType(raw string) (EventType, bool) {
	switch raw {
	case "processed":
		return Processed, true
	case "dropped":
		return Dropped, true
	case "delivered":
		return Delivered, true
	case "deferred":
		return Deferred, true
	case "bounce":
		return Bounce, true
	case "open":
		return Opened, true
	case "click":
		return Clicked, true
	case "spamreport":
		return SpamReport, true
	case "unsubscribe":
		return Unsubscribe, true
	case "group_unsubscribe":
		return GroupUnsubscribe, true
	case "group_resubscribe":
		return GroupResubscribe, true
	}
	return 0, false
}

func (t EventType) String() string {
	switch t {
	case Processed:
		return "processed"
	case Dropped:
		return "dropped"
	case Delivered:
		return "delivered"
	case Deferred:
		return "deferred"
	case Bounce:
		return "bounce"
	case Opened:
		return "opened"
	case Clicked:
		return "clicked"
	case SpamReport:
		return "spam_report"
	case Unsubscribe:
		return "unsubscribe"
	case GroupUnsubscribe:
		return "group_unsubscribe"
	case GroupResubscribe:
		return "group_resubscribe"
	}
	return "unknown"
}

// IsFailure reports whether diagnostic details are captured for t.
func (t EventType) IsFailure() bool {
	return t == Bounce || t == Deferred || t == Dropped
}

// Event is the canonical, storage-ready form of one webhook record.
type Event struct {
	CampaignID int64
	EventType  EventType
	Recipient  string
	MessageID  string
	EventID    string
	Details    *string // nil unless EventType.IsFailure()
	Timestamp  time.Time
}

// Column bounds of email_events (keep in sync with the migrations).
const (
	MaxRecipientLen = 255
	MaxMessageIDLen = 200
	MaxEventIDLen   = 200
	MaxDetailsLen   = 200
)
