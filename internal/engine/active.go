package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/seantiz/asyncops/internal/model"
	"github.com/seantiz/asyncops/internal/process"
)

// ActiveProcess is a point-in-time view of an executing operation.
type ActiveProcess struct {
	OperationID     string       `json:"operation_id"`
	OwnerID         string       `json:"owner_id,omitempty"`
	PayloadID       string       `json:"payload_id"`
	PayloadType     string       `json:"payload_type"`
	ProcessType     string       `json:"process_type"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	Status          model.Status `json:"status"`
	Progress        int          `json:"progress"`
	ProgressMessage string       `json:"progress_message"`
	CreatedAt       time.Time    `json:"created_at"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	RunningTimeMS   int64        `json:"running_time_ms"`
}

// activeProcess is the registry entry for one executing operation. It owns
// the operation's cancel function; done is closed once the worker has
// finished with the operation.
type activeProcess struct {
	operationID string
	ownerID     string
	payloadID   string
	payloadType string
	processType string
	name        string
	description string
	createdAt   time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	status    model.Status
	percent   int
	message   string
	startedAt *time.Time
}

func newActiveProcess(op *model.Operation, p model.Payload, entry process.Entry, cancel context.CancelFunc) *activeProcess {
	return &activeProcess{
		operationID: op.ID,
		ownerID:     op.OwnerID,
		payloadID:   p.RecordID(),
		payloadType: entry.PayloadType,
		processType: entry.ProcessType,
		name:        op.Name,
		description: op.Description,
		createdAt:   time.Now().UTC(),
		cancel:      cancel,
		done:        make(chan struct{}),
		status:      op.Status,
	}
}

func (a *activeProcess) update(status model.Status, percent int, message string, startedAt *time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
	a.percent = percent
	a.message = message
	if startedAt != nil {
		t := *startedAt
		a.startedAt = &t
	}
}

func (a *activeProcess) snapshot(now time.Time) ActiveProcess {
	a.mu.Lock()
	defer a.mu.Unlock()

	ap := ActiveProcess{
		OperationID:     a.operationID,
		OwnerID:         a.ownerID,
		PayloadID:       a.payloadID,
		PayloadType:     a.payloadType,
		ProcessType:     a.processType,
		Name:            a.name,
		Description:     a.description,
		Status:          a.status,
		Progress:        a.percent,
		ProgressMessage: a.message,
		CreatedAt:       a.createdAt,
		RunningTimeMS:   now.Sub(a.createdAt).Milliseconds(),
	}
	if a.startedAt != nil {
		t := *a.startedAt
		ap.StartedAt = &t
	}
	return ap
}

// activeRegistry maps operation ids to executing operations. Insert and
// removal are atomic per key.
type activeRegistry struct {
	m sync.Map
}

// add registers ap, failing if its operation id is already present.
func (r *activeRegistry) add(ap *activeProcess) bool {
	if _, loaded := r.m.LoadOrStore(ap.operationID, ap); loaded {
		return false
	}
	activeOperations.Inc()
	return true
}

// take atomically removes and returns the entry for id.
func (r *activeRegistry) take(id string) (*activeProcess, bool) {
	v, ok := r.m.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	activeOperations.Dec()
	return v.(*activeProcess), true
}

// remove deletes ap only if it is still the registered entry for its id.
func (r *activeRegistry) remove(ap *activeProcess) bool {
	if !r.m.CompareAndDelete(ap.operationID, ap) {
		return false
	}
	activeOperations.Dec()
	return true
}

func (r *activeRegistry) get(id string) (*activeProcess, bool) {
	v, ok := r.m.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*activeProcess), true
}

func (r *activeRegistry) count() int {
	n := 0
	r.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// list returns snapshots of every entry, oldest first.
func (r *activeRegistry) list(now time.Time) []ActiveProcess {
	out := []ActiveProcess{}
	r.m.Range(func(_, v any) bool {
		out = append(out, v.(*activeProcess).snapshot(now))
		return true
	})
	slices.SortFunc(out, func(a, b ActiveProcess) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
