package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"buckets/internal/core"
	"buckets/internal/ports"
)

// WeekChangedMessage tells consumers that a user's week must be re-read.
// It carries no amounts; consumers fetch the current summary themselves.
type WeekChangedMessage struct {
	UserID    string    `json:"user_id"`
	WeekStart string    `json:"week_start"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewWeekChangedMessage(ev ports.WeekChanged) *WeekChangedMessage {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &WeekChangedMessage{
		UserID:    ev.UserID,
		WeekStart: ev.WeekStart.String(),
		Reason:    ev.Reason,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *WeekChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Event converts the message back into a domain event.
func (m *WeekChangedMessage) Event() (ports.WeekChanged, error) {
	if m.UserID == "" {
		return ports.WeekChanged{}, fmt.Errorf("message without user_id")
	}
	week, err := core.ParseDate(m.WeekStart)
	if err != nil {
		return ports.WeekChanged{}, fmt.Errorf("week_start: %w", err)
	}
	return ports.WeekChanged{UserID: m.UserID, WeekStart: week, Reason: m.Reason, Timestamp: m.Timestamp}, nil
}

// WeekChangedMessageFromJSON decodes and validates a message body.
func WeekChangedMessageFromJSON(data []byte) (*WeekChangedMessage, error) {
	var msg WeekChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := msg.Event(); err != nil {
		return nil, err
	}
	return &msg, nil
}
