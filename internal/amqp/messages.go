package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finanzas/internal/core"
)

// Op is the kind of change a RecordChangedMessage announces.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

func (o Op) Valid() bool {
	return o == OpCreate || o == OpUpdate || o == OpDelete
}

var ErrInvalidMessage = errors.New("invalid record changed message")

// RecordChangedMessage announces that a record was written. It carries
// only identifiers; consumers read the record itself from the store.
type RecordChangedMessage struct {
	ID        string    `json:"id"`
	Kind      core.Kind `json:"kind"`
	RecordID  string    `json:"record_id"`
	Op        Op        `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(kind core.Kind, recordID string, op Op) *RecordChangedMessage {
	return &RecordChangedMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		RecordID:  recordID,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

func (m *RecordChangedMessage) Validate() error {
	switch {
	case !m.Kind.Valid():
		return fmt.Errorf("%w: kind %q", ErrInvalidMessage, m.Kind)
	case !m.Op.Valid():
		return fmt.Errorf("%w: op %q", ErrInvalidMessage, m.Op)
	case m.RecordID == "":
		return fmt.Errorf("%w: empty record id", ErrInvalidMessage)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON decodes and validates a message body.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
