package store

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seantiz/asyncops/internal/model"
)

// CleanupStrategy selects which records the in-memory backend evicts when a
// repository nears its capacity.
type CleanupStrategy string

// Cleanup strategies.
const (
	CleanupRemoveOldest         CleanupStrategy = "remove-oldest"
	CleanupRemoveCompletedFirst CleanupStrategy = "remove-completed-first"
	CleanupRemoveFailedFirst    CleanupStrategy = "remove-failed-first"
	CleanupReject               CleanupStrategy = "reject"
)

// ParseCleanupStrategy converts a configuration string into a CleanupStrategy.
func ParseCleanupStrategy(s string) (CleanupStrategy, error) {
	switch st := CleanupStrategy(strings.ToLower(strings.TrimSpace(s))); st {
	case CleanupRemoveOldest, CleanupRemoveCompletedFirst, CleanupRemoveFailedFirst, CleanupReject:
		return st, nil
	case "":
		return CleanupRemoveOldest, nil
	}
	return "", fmt.Errorf("unknown cleanup strategy %q", s)
}

// MemoryOptions bounds the in-memory backend. A Max of zero or less disables
// the bound for that entity kind.
type MemoryOptions struct {
	MaxOperations int
	MaxPayloads   int
	MaxProgress   int
	MaxResults    int
	Strategy      CleanupStrategy
	// BatchSize is the number of records evicted per cleanup pass; zero
	// means ten percent of the bound.
	BatchSize   int
	AutoCleanup bool
	// Threshold is the fill ratio (0,1] at which a cleanup pass runs.
	Threshold float64
}

// DefaultMemoryOptions returns the bounds used when nothing is configured.
func DefaultMemoryOptions() MemoryOptions {
	return MemoryOptions{
		MaxOperations: 100,
		MaxPayloads:   100,
		MaxProgress:   1000,
		MaxResults:    100,
		Strategy:      CleanupRemoveOldest,
		AutoCleanup:   true,
		Threshold:     0.9,
	}
}

const memoryBackendName = "memory"

// NewMemoryStorage returns a Storage whose repositories live in process memory.
func NewMemoryStorage(opts MemoryOptions) *Storage {
	return &Storage{
		Name:       memoryBackendName,
		Operations: newMemoryOperations(opts),
		Payloads: newMemoryChildren(opts.capacity(opts.MaxPayloads), func(p model.Payload) model.Payload {
			// Payloads are immutable once admitted.
			return p
		}),
		Progress: newMemoryChildren(opts.capacity(opts.MaxProgress), func(p *model.Progress) *model.Progress {
			c := *p
			return &c
		}),
		Results: newMemoryChildren(opts.capacity(opts.MaxResults), func(r *model.Result) *model.Result {
			c := *r
			return &c
		}),
	}
}

type capacity struct {
	max       int
	batch     int
	threshold float64
	auto      bool
	reject    bool
}

func (o MemoryOptions) capacity(limit int) capacity {
	c := capacity{
		max:       limit,
		batch:     o.BatchSize,
		threshold: o.Threshold,
		auto:      o.AutoCleanup,
		reject:    o.Strategy == CleanupReject,
	}
	if c.threshold <= 0 || c.threshold > 1 {
		c.threshold = 1
	}
	if c.batch <= 0 {
		c.batch = limit / 10
	}
	if c.batch < 1 {
		c.batch = 1
	}
	return c
}

// trigger is the item count at which a cleanup pass runs.
func (c capacity) trigger() int {
	return max(1, int(math.Ceil(float64(c.max)*c.threshold)))
}

// memTable is a concurrent id-keyed table with copy-in/copy-out semantics and
// optional bounded capacity.
type memTable[T any] struct {
	items sync.Map
	count atomic.Int64
	cap   capacity

	clone     func(T) T
	id        func(T) string
	createdAt func(T) time.Time
	// evictable filters cleanup candidates; nil means every record.
	evictable func(T) bool
	// rank orders cleanup candidates before age; lower goes first.
	rank func(T) int

	cleanupMu sync.Mutex
}

// admit makes room for one new record or reports that none can be made.
func (t *memTable[T]) admit() error {
	if t.cap.max <= 0 {
		return nil
	}
	n := int(t.count.Load())
	if t.cap.reject || !t.cap.auto {
		if n >= t.cap.max {
			return fmt.Errorf("%w: %d records", ErrLimitReached, n)
		}
		return nil
	}
	if n >= t.cap.trigger() {
		t.cleanup()
	}
	// Cleanup may find nothing evictable.
	if n := int(t.count.Load()); n >= t.cap.max {
		return fmt.Errorf("%w: %d records", ErrLimitReached, n)
	}
	return nil
}

func (t *memTable[T]) cleanup() {
	t.cleanupMu.Lock()
	defer t.cleanupMu.Unlock()

	if int(t.count.Load()) < t.cap.trigger() {
		return
	}

	var candidates []T
	t.items.Range(func(_, v any) bool {
		item := v.(T)
		if t.evictable == nil || t.evictable(item) {
			candidates = append(candidates, item)
		}
		return true
	})
	slices.SortStableFunc(candidates, func(a, b T) int {
		if t.rank != nil {
			if c := cmp.Compare(t.rank(a), t.rank(b)); c != 0 {
				return c
			}
		}
		return t.createdAt(a).Compare(t.createdAt(b))
	})

	for _, item := range candidates[:min(t.cap.batch, len(candidates))] {
		if _, ok := t.items.LoadAndDelete(t.id(item)); ok {
			t.count.Add(-1)
		}
	}
}

func (t *memTable[T]) create(item T) (T, error) {
	var zero T
	if err := t.admit(); err != nil {
		return zero, err
	}
	v := t.clone(item)
	if _, loaded := t.items.LoadOrStore(t.id(v), v); loaded {
		return zero, fmt.Errorf("%w: %s", ErrDuplicateID, t.id(v))
	}
	t.count.Add(1)
	return t.clone(v), nil
}

func (t *memTable[T]) get(id string) (T, error) {
	v, ok := t.items.Load(id)
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return t.clone(v.(T)), nil
}

func (t *memTable[T]) update(item T) (T, error) {
	v := t.clone(item)
	id := t.id(v)
	for {
		old, ok := t.items.Load(id)
		if !ok {
			var zero T
			return zero, ErrNotFound
		}
		if t.items.CompareAndSwap(id, old, v) {
			return t.clone(v), nil
		}
	}
}

func (t *memTable[T]) upsert(item T) (T, error) {
	v := t.clone(item)
	id := t.id(v)
	if _, ok := t.items.Load(id); !ok {
		if err := t.admit(); err != nil {
			var zero T
			return zero, err
		}
	}
	if _, loaded := t.items.Swap(id, v); !loaded {
		t.count.Add(1)
	}
	return t.clone(v), nil
}

func (t *memTable[T]) remove(id string) {
	if _, ok := t.items.LoadAndDelete(id); ok {
		t.count.Add(-1)
	}
}

// filter returns copies of every record accepted by keep.
func (t *memTable[T]) filter(keep func(T) bool) []T {
	var out []T
	t.items.Range(func(_, v any) bool {
		item := v.(T)
		if keep(item) {
			out = append(out, t.clone(item))
		}
		return true
	})
	return out
}

// memoryOperations implements OperationRepository in memory.
type memoryOperations struct {
	t *memTable[*model.Operation]
}

var _ OperationRepository = (*memoryOperations)(nil)

func newMemoryOperations(opts MemoryOptions) *memoryOperations {
	t := &memTable[*model.Operation]{
		cap:       opts.capacity(opts.MaxOperations),
		clone:     (*model.Operation).Clone,
		id:        func(op *model.Operation) string { return op.ID },
		createdAt: func(op *model.Operation) time.Time { return op.CreatedAt },
		// Operations still queued or executing are never evicted.
		evictable: func(op *model.Operation) bool { return op.Status.Terminal() },
	}
	switch opts.Strategy {
	case CleanupRemoveCompletedFirst:
		t.rank = func(op *model.Operation) int {
			if op.Status == model.StatusCompleted {
				return 0
			}
			return 1
		}
	case CleanupRemoveFailedFirst:
		t.rank = func(op *model.Operation) int {
			if op.Status == model.StatusFailed || op.Status == model.StatusCanceled {
				return 0
			}
			return 1
		}
	}
	return &memoryOperations{t: t}
}

func (m *memoryOperations) Create(_ context.Context, op *model.Operation) (*model.Operation, error) {
	return m.t.create(op)
}

func (m *memoryOperations) Get(_ context.Context, id string) (*model.Operation, error) {
	return m.t.get(id)
}

func (m *memoryOperations) Update(_ context.Context, op *model.Operation) (*model.Operation, error) {
	return m.t.update(op)
}

func (m *memoryOperations) Upsert(_ context.Context, op *model.Operation) (*model.Operation, error) {
	return m.t.upsert(op)
}

func (m *memoryOperations) Remove(_ context.Context, id string) error {
	m.t.remove(id)
	return nil
}

func (m *memoryOperations) Latest(_ context.Context, count int, statuses []model.Status, ownerID string) ([]*model.Operation, error) {
	if count <= 0 {
		count = defaultPageSize
	}
	q := OperationQuery{Statuses: statuses, OwnerID: ownerID}
	ops := m.t.filter(func(op *model.Operation) bool { return matchesQuery(op, q, "") })
	sortOperations(ops, false)
	return ops[:min(count, len(ops))], nil
}

func (m *memoryOperations) Query(_ context.Context, q OperationQuery) (*OperationPage, error) {
	q = q.Normalize()
	search := strings.ToLower(strings.TrimSpace(q.Search))
	ops := m.t.filter(func(op *model.Operation) bool { return matchesQuery(op, q, search) })
	sortOperations(ops, q.Ascending)

	page := &OperationPage{
		Operations: []*model.Operation{},
		Total:      len(ops),
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
	if start := q.Offset(); start < len(ops) {
		page.Operations = ops[start:min(start+q.PageSize, len(ops))]
	}
	return page, nil
}

func sortOperations(ops []*model.Operation, ascending bool) {
	slices.SortFunc(ops, func(a, b *model.Operation) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if !ascending {
			c = -c
		}
		return c
	})
}

// memoryChildren implements ChildRepository in memory.
type memoryChildren[T model.Child] struct {
	t *memTable[T]
}

var _ ChildRepository[*model.Progress] = (*memoryChildren[*model.Progress])(nil)

func newMemoryChildren[T model.Child](c capacity, clone func(T) T) *memoryChildren[T] {
	return &memoryChildren[T]{t: &memTable[T]{
		cap:       c,
		clone:     clone,
		id:        func(item T) string { return item.RecordID() },
		createdAt: func(item T) time.Time { return item.RecordedAt() },
	}}
}

func (m *memoryChildren[T]) Create(_ context.Context, item T) (T, error) {
	return m.t.create(item)
}

func (m *memoryChildren[T]) Get(_ context.Context, id string) (T, error) {
	return m.t.get(id)
}

func (m *memoryChildren[T]) GetByOperationID(_ context.Context, operationID string) (T, error) {
	items := m.byOperation(operationID)
	if len(items) == 0 {
		var zero T
		return zero, ErrNotFound
	}
	return items[len(items)-1], nil
}

func (m *memoryChildren[T]) ListByOperationID(_ context.Context, operationID string) ([]T, error) {
	return m.byOperation(operationID), nil
}

func (m *memoryChildren[T]) Update(_ context.Context, item T) (T, error) {
	return m.t.update(item)
}

func (m *memoryChildren[T]) Upsert(_ context.Context, item T) (T, error) {
	return m.t.upsert(item)
}

func (m *memoryChildren[T]) Remove(_ context.Context, id string) error {
	m.t.remove(id)
	return nil
}

// byOperation returns the operation's records ordered oldest first.
func (m *memoryChildren[T]) byOperation(operationID string) []T {
	items := m.t.filter(func(item T) bool { return item.ParentID() == operationID })
	slices.SortFunc(items, func(a, b T) int {
		if c := a.RecordedAt().Compare(b.RecordedAt()); c != 0 {
			return c
		}
		return strings.Compare(a.RecordID(), b.RecordID())
	})
	return items
}
