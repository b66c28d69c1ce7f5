package store

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/seantiz/asyncops/internal/model"
)

// Sentinel errors shared by every backend.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateID  = errors.New("duplicate record id")
	ErrLimitReached = errors.New("storage limit reached")
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// OperationQuery filters and pages an operation listing. Zero values mean
// "no filter" for every field except paging, which Normalize fills in.
type OperationQuery struct {
	From      time.Time
	To        time.Time
	Statuses  []model.Status
	OwnerID   string
	Search    string
	Ascending bool
	Page      int
	PageSize  int
}

// Normalize clamps paging to a 1-based page and a page size within bounds.
func (q OperationQuery) Normalize() OperationQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q
}

// Offset returns the number of records skipped before the current page.
func (q OperationQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// OperationPage is one page of an operation listing.
type OperationPage struct {
	Operations []*model.Operation `json:"operations"`
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

// OperationRepository persists operations.
type OperationRepository interface {
	Create(ctx context.Context, op *model.Operation) (*model.Operation, error)
	Get(ctx context.Context, id string) (*model.Operation, error)
	Update(ctx context.Context, op *model.Operation) (*model.Operation, error)
	Upsert(ctx context.Context, op *model.Operation) (*model.Operation, error)
	Remove(ctx context.Context, id string) error
	// Latest returns up to count operations, newest first, optionally
	// restricted to the given statuses and owner.
	Latest(ctx context.Context, count int, statuses []model.Status, ownerID string) ([]*model.Operation, error)
	Query(ctx context.Context, q OperationQuery) (*OperationPage, error)
}

// ChildRepository persists records that belong to an operation.
type ChildRepository[T model.Child] interface {
	Create(ctx context.Context, item T) (T, error)
	Get(ctx context.Context, id string) (T, error)
	// GetByOperationID returns the most recently created record for the operation.
	GetByOperationID(ctx context.Context, operationID string) (T, error)
	// ListByOperationID returns every record for the operation, oldest first.
	ListByOperationID(ctx context.Context, operationID string) ([]T, error)
	Update(ctx context.Context, item T) (T, error)
	Upsert(ctx context.Context, item T) (T, error)
	Remove(ctx context.Context, id string) error
}

// Storage bundles the repositories for the four entity kinds.
type Storage struct {
	// Name identifies the backend, e.g. "memory" or "sqlite".
	Name       string
	Operations OperationRepository
	Payloads   ChildRepository[model.Payload]
	Progress   ChildRepository[*model.Progress]
	Results    ChildRepository[*model.Result]
	Closer     io.Closer
}

// Close releases backend resources, if any.
func (s *Storage) Close() error {
	if s.Closer == nil {
		return nil
	}
	return s.Closer.Close()
}

// matchesQuery reports whether op passes the non-paging filters of q.
// Backends that filter in Go rather than in SQL share it.
func matchesQuery(op *model.Operation, q OperationQuery, search string) bool {
	if !q.From.IsZero() && op.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && op.CreatedAt.After(q.To) {
		return false
	}
	if q.OwnerID != "" && op.OwnerID != q.OwnerID {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, op.Status) {
		return false
	}
	if search != "" &&
		!containsFold(op.Name, search) &&
		!containsFold(op.Description, search) {
		return false
	}
	return true
}

// containsFold reports whether s contains the already lower-cased needle.
func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}
