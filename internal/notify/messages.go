package notify

import (
	"encoding/json"
	"time"

	"budgetwise/internal/core"
)

// ReminderMessage is the wire form of a next-day reminder. The consumer turns
// it into the outbound email; the engine never formats mail itself.
type ReminderMessage struct {
	Email       string        `json:"email"`
	AmountCents int64         `json:"amount_cents"`
	Category    core.Category `json:"category"`
	Note        string        `json:"note"`
	Date        time.Time     `json:"date"`
	Timestamp   time.Time     `json:"timestamp"`
}

func NewReminderMessage(r core.Reminder) *ReminderMessage {
	return &ReminderMessage{
		Email:       r.Email,
		AmountCents: r.AmountCents,
		Category:    r.Category,
		Note:        r.Note,
		Date:        r.Date,
		Timestamp:   time.Now(),
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
