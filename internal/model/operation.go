package model

import (
	"fmt"
	"time"
)

// Operation is the tracked record of one submitted payload and its outcome.
type Operation struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id,omitempty"`
	PayloadType       string     `json:"payload_type"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Status            Status     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	FailedAt          *time.Time `json:"failed_at,omitempty"`
	CanceledAt        *time.Time `json:"canceled_at,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	InnerErrorMessage string     `json:"inner_error_message,omitempty"`
	ErrorStackTrace   string     `json:"error_stack_trace,omitempty"`
	ExecutionTimeMS   int64      `json:"execution_time_ms"`
}

// NewOperation builds a pending operation for the given payload, copying the
// owner, type and descriptive fields. The payload's OperationID is pointed at
// the new operation.
func NewOperation(p Payload, now time.Time) *Operation {
	b := p.Base()
	op := &Operation{
		ID:          NewIDAt(now),
		OwnerID:     b.OwnerID,
		PayloadType: b.PayloadType,
		Name:        b.Name,
		Description: b.Description,
		Status:      StatusPending,
		CreatedAt:   now,
	}
	b.OperationID = op.ID
	return op
}

// Transition moves the operation to the given status, rejecting anything that
// is not a forward step of the lifecycle.
func (o *Operation) Transition(to Status) error {
	if !ValidTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	return nil
}

// Clone returns a copy of the operation that shares no mutable state with o.
func (o *Operation) Clone() *Operation {
	c := *o
	c.StartedAt = cloneTime(o.StartedAt)
	c.CompletedAt = cloneTime(o.CompletedAt)
	c.FailedAt = cloneTime(o.FailedAt)
	c.CanceledAt = cloneTime(o.CanceledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
