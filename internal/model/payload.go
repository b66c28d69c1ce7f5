package model

import (
	"encoding/json"
	"time"
)

// Child is a record owned by an operation: payloads, progress snapshots and
// results all satisfy it so they can share one repository shape.
type Child interface {
	RecordID() string
	ParentID() string
	RecordedAt() time.Time
}

// Payload is the input of one operation. Concrete payload types embed
// PayloadBase and add their own fields.
type Payload interface {
	Child
	Base() *PayloadBase
}

// PayloadBase carries the fields common to every payload type.
type PayloadBase struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id,omitempty"`
	OperationID string    `json:"operation_id"`
	PayloadType string    `json:"payload_type"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Base returns b itself, which lets any struct embedding PayloadBase satisfy Payload.
func (b *PayloadBase) Base() *PayloadBase { return b }

func (b *PayloadBase) RecordID() string      { return b.ID }
func (b *PayloadBase) ParentID() string      { return b.OperationID }
func (b *PayloadBase) RecordedAt() time.Time { return b.CreatedAt }

// RawPayload is a payload whose type-specific fields were not decoded. Storage
// backends return it when no decoder is known for the stored type.
type RawPayload struct {
	PayloadBase
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON flattens the base fields and the raw data into one object so a
// RawPayload serializes the same way the original typed payload did.
func (p *RawPayload) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(p.PayloadBase)
	if err != nil {
		return nil, err
	}
	if len(p.Data) == 0 {
		return base, nil
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(p.Data, &fields); err != nil {
		// Not an object; keep it under "data".
		return json.Marshal(struct {
			PayloadBase
			Data json.RawMessage `json:"data"`
		}{p.PayloadBase, p.Data})
	}
	var baseFields map[string]json.RawMessage
	if err := json.Unmarshal(base, &baseFields); err != nil {
		return nil, err
	}
	for k, v := range baseFields {
		fields[k] = v
	}
	return json.Marshal(fields)
}
