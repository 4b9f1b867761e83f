package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// LedgerSyncedMessage announces that the ledger mirror was refreshed.
// Consumers reload from the mirror; the message carries no rows.
type LedgerSyncedMessage struct {
	Rows     int       `json:"rows"`
	Source   string    `json:"source"`
	SyncedAt time.Time `json:"synced_at"`
}

// NewLedgerSyncedMessage creates a message stamped with the current time
func NewLedgerSyncedMessage(rows int, source string) *LedgerSyncedMessage {
	return &LedgerSyncedMessage{
		Rows:     rows,
		Source:   source,
		SyncedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerSyncedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncedMessageFromJSON decodes a message. A message without a sync
// time is rejected.
func LedgerSyncedMessageFromJSON(data []byte) (*LedgerSyncedMessage, error) {
	var msg LedgerSyncedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SyncedAt.IsZero() {
		return nil, errors.New("missing synced_at")
	}
	return &msg, nil
}
