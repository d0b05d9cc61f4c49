package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// RawEvent is one decoded webhook line. Fields whose JSON type varies
// between provider versions are kept as raw JSON.
type RawEvent struct {
	CampaignID json.RawMessage `json:"campaign_id"`
	Event      *string         `json:"event"`
	Email      *string         `json:"email"`
	MessageID  *string         `json:"sg_message_id"`
	EventID    *string         `json:"sg_event_id"`
	Timestamp  json.RawMessage `json:"timestamp"`
	Type       json.RawMessage `json:"type"`
	Reason     json.RawMessage `json:"reason"`
	Response   json.RawMessage `json:"response"`
}

// RejectReason classifies why a record was not turned into an Event.
type RejectReason string

const (
	ReasonInvalidJSON       RejectReason = "invalid_json"
	ReasonInvalidCampaignID RejectReason = "invalid_campaign_id"
	ReasonUnknownEventType  RejectReason = "unknown_event_type"
	ReasonMissingField      RejectReason = "missing_field"
	ReasonInvalidTimestamp  RejectReason = "invalid_timestamp"
	ReasonFieldTooLong      RejectReason = "field_too_long"
	ReasonInvalidCharacter  RejectReason = "invalid_character"

	// ReasonUnclassified counts record errors that carry no Rejection.
	ReasonUnclassified RejectReason = "unclassified"
)

// Rejection is returned for records that are skipped. It is expected in
// noisy upstream data and never fatal to a batch.
type Rejection struct {
	Reason RejectReason `json:"reason"`
	Field  string       `json:"field"`
	Detail string       `json:"detail"`
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("%s: %s", r.Field, r.Reason)
	}
	return fmt.Sprintf("%s: %s (%s)", r.Field, r.Reason, r.Detail)
}

func reject(reason RejectReason, field, detail string) *Rejection {
	return &Rejection{Reason: reason, Field: field, Detail: detail}
}

// DecodeRawEvent parses a single JSON line.
func DecodeRawEvent(line []byte) (RawEvent, error) {
	var raw RawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return RawEvent{}, reject(ReasonInvalidJSON, "", err.Error())
	}
	return raw, nil
}

// Normalize validates raw and derives its canonical Event. Any returned
// error is a *Rejection.
func Normalize(raw RawEvent) (Event, error) {
	campaignID, rej := parseCampaignID(raw.CampaignID)
	if rej != nil {
		return Event{}, rej
	}

	if raw.Event == nil {
		return Event{}, reject(ReasonUnknownEventType, "event", "missing")
	}
	et, ok := ParseEventType(*raw.Event)
	if !ok {
		return Event{}, reject(ReasonUnknownEventType, "event", *raw.Event)
	}

	var details *string
	if et.IsFailure() {
		d := buildDetails(*raw.Event, raw.Type, raw.Reason, raw.Response)
		details = &d
	}

	if raw.MessageID == nil || *raw.MessageID == "" {
		return Event{}, reject(ReasonMissingField, "sg_message_id", "")
	}
	messageID, _, _ := strings.Cut(*raw.MessageID, ".")

	ts, rej := parseTimestamp(raw.Timestamp)
	if rej != nil {
		return Event{}, rej
	}

	if raw.Email == nil || *raw.Email == "" {
		return Event{}, reject(ReasonMissingField, "email", "")
	}
	if raw.EventID == nil || *raw.EventID == "" {
		return Event{}, reject(ReasonMissingField, "sg_event_id", "")
	}

	ev := Event{
		CampaignID: campaignID,
		EventType:  et,
		Recipient:  *raw.Email,
		MessageID:  messageID,
		EventID:    *raw.EventID,
		Details:    details,
		Timestamp:  ts,
	}
	if rej := checkBounds(ev); rej != nil {
		return Event{}, rej
	}
	return ev, nil
}

// parseCampaignID accepts a JSON string or integer whose text is all ASCII
// digits and whose value fits the INT column.
func parseCampaignID(raw json.RawMessage) (int64, *Rejection) {
	if isNull(raw) {
		return 0, reject(ReasonInvalidCampaignID, "campaign_id", "missing")
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, reject(ReasonInvalidCampaignID, "campaign_id", err.Error())
		}
	}
	if !isDigits(s) {
		return 0, reject(ReasonInvalidCampaignID, "campaign_id", "not numeric: "+s)
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, reject(ReasonInvalidCampaignID, "campaign_id", "out of range: "+s)
	}
	if n == 0 {
		return 0, reject(ReasonInvalidCampaignID, "campaign_id", "must be > 0")
	}
	return n, nil
}

// Storable epoch range: 0001-01-01T00:00:00Z through 9999-12-31T23:59:59Z.
const (
	minEpochSeconds = -62135596800
	maxEpochSeconds = 253402300799
)

// parseTimestamp reads epoch seconds as a UTC instant.
func parseTimestamp(raw json.RawMessage) (time.Time, *Rejection) {
	if isNull(raw) {
		return time.Time{}, reject(ReasonInvalidTimestamp, "timestamp", "missing")
	}
	s := string(raw)
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		if sec < minEpochSeconds || sec > maxEpochSeconds {
			return time.Time{}, reject(ReasonInvalidTimestamp, "timestamp", "out of range: "+s)
		}
		return time.Unix(sec, 0).UTC(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return time.Time{}, reject(ReasonInvalidTimestamp, "timestamp", "not epoch seconds: "+s)
	}
	if f < minEpochSeconds || f >= maxEpochSeconds+1 {
		return time.Time{}, reject(ReasonInvalidTimestamp, "timestamp", "out of range: "+s)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

// buildDetails renders the failure diagnostic. Missing optional fields
// render as empty strings.
func buildDetails(event string, typ, reason, response json.RawMessage) string {
	d := fmt.Sprintf("event=%s type=%s reason=%s response=%s",
		event, renderOptional(typ), renderOptional(reason), renderOptional(response))
	d = strings.ReplaceAll(d, "\x00", "")
	return truncate(d, MaxDetailsLen)
}

func renderOptional(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func checkBounds(ev Event) *Rejection {
	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"email", ev.Recipient, MaxRecipientLen},
		{"sg_message_id", ev.MessageID, MaxMessageIDLen},
		{"sg_event_id", ev.EventID, MaxEventIDLen},
	} {
		if n := utf8.RuneCountInString(f.value); n > f.max {
			return reject(ReasonFieldTooLong, f.name, fmt.Sprintf("%d > %d characters", n, f.max))
		}
		if strings.IndexByte(f.value, 0) >= 0 {
			return reject(ReasonInvalidCharacter, f.name, "contains NUL")
		}
	}
	return nil
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
