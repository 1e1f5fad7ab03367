package retrain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TriggerMessage asks the training worker to rebuild the category model
// from the accumulated corrections. MinCorrections is the threshold the
// worker re-checks against the corrections table before training.
type TriggerMessage struct {
	TriggerID        string    `json:"trigger_id"`
	TotalCorrections int64     `json:"total_corrections"`
	MinCorrections   int64     `json:"min_corrections"`
	RequestedAt      time.Time `json:"requested_at"`
}

// NewTriggerMessage creates a trigger for the given corrections total.
func NewTriggerMessage(totalCorrections int64) *TriggerMessage {
	return &TriggerMessage{
		TriggerID:        uuid.NewString(),
		TotalCorrections: totalCorrections,
		MinCorrections:   totalCorrections - 1,
		RequestedAt:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TriggerMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TriggerMessageFromJSON creates a message from JSON bytes.
func TriggerMessageFromJSON(data []byte) (*TriggerMessage, error) {
	var msg TriggerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
