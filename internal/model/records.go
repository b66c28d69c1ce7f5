package model

import "time"

// Progress is the latest observed progress of an operation.
type Progress struct {
	ID          string    `json:"id"`
	OperationID string    `json:"operation_id"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	Percent     int       `json:"percent"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *Progress) RecordID() string      { return p.ID }
func (p *Progress) ParentID() string      { return p.OperationID }
func (p *Progress) RecordedAt() time.Time { return p.CreatedAt }

// Result is the output of a completed operation.
type Result struct {
	ID          string    `json:"id"`
	OperationID string    `json:"operation_id"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Value       string    `json:"value"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *Result) RecordID() string      { return r.ID }
func (r *Result) ParentID() string      { return r.OperationID }
func (r *Result) RecordedAt() time.Time { return r.CreatedAt }
