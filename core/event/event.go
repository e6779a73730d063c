package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

const hashLength = 8

// Event is one line of the event log. Events are immutable once appended.
type Event struct {
	Timestamp    int64    `json:"t"`
	Category     Category `json:"c"`
	VersionStamp string   `json:"v"`
	AnonID       string   `json:"i"`
	Message      string   `json:"m,omitempty"`
}

func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

func (e Event) HasMessage() bool {
	return e.Message != ""
}

// Hash is the 8 character hex digest sent with each telemetry event so the
// receiver can dedupe and detect tampering.
func (e Event) Hash() string {
	input := fmt.Sprintf("c:%s|t:%d|v:%s|m:%s|i:%s", e.Category.ShortForm(), e.Timestamp, e.VersionStamp, e.Message, e.AnonID)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:hashLength]
}

func (e Event) MarshalLine() ([]byte, error) {
	if !e.Category.Valid() {
		return nil, fmt.Errorf("event has invalid category %d", uint8(e.Category))
	}
	encoded, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return encoded, nil
}

func ParseLine(line []byte) (Event, error) {
	var parsed Event
	if err := json.Unmarshal(line, &parsed); err != nil {
		return Event{}, err
	}
	if !parsed.Category.Valid() {
		return Event{}, fmt.Errorf("event is missing category")
	}
	return parsed, nil
}
