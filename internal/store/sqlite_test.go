package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/asyncops/internal/model"
)

func newTestStore(t *testing.T, opts ...SQLiteOption) *Storage {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.Storage()
}

func makeTestOperation() *model.Operation {
	return &model.Operation{
		ID:          model.NewID(),
		OwnerID:     "owner-1",
		PayloadType: "Sample",
		Name:        "sample job",
		Description: "a sample job",
		Status:      model.StatusPending,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

type samplePayload struct {
	model.PayloadBase
	Count int `json:"count"`
}

func decodeSample(payloadType string, data []byte) (model.Payload, error) {
	if payloadType != "Sample" {
		return nil, errors.New("unknown payload type")
	}
	p := &samplePayload{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

func TestCreateAndGetOperation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	op := makeTestOperation()

	_, err := s.Operations.Create(ctx, op)
	require.NoError(t, err)

	got, err := s.Operations.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, op.ID, got.ID)
	assert.Equal(t, op.Status, got.Status)
	assert.Equal(t, op.Name, got.Name)
	assert.True(t, got.CreatedAt.Equal(op.CreatedAt), "CreatedAt = %v, want %v", got.CreatedAt, op.CreatedAt)
	assert.Nil(t, got.StartedAt)
}

func TestCreateOperationDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	op := makeTestOperation()

	_, err := s.Operations.Create(ctx, op)
	require.NoError(t, err)
	_, err = s.Operations.Create(ctx, op)
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestGetOperationNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Operations.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOperation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	op := makeTestOperation()

	_, err := s.Operations.Create(ctx, op)
	require.NoError(t, err)

	now := time.Now().UTC()
	op.Status = model.StatusFailed
	op.StartedAt = &now
	op.FailedAt = &now
	op.ErrorMessage = "boom"
	op.InnerErrorMessage = "inner boom"
	op.ExecutionTimeMS = 150
	_, err = s.Operations.Update(ctx, op)
	require.NoError(t, err)

	got, err := s.Operations.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	require.NotNil(t, got.FailedAt)
	assert.True(t, got.FailedAt.Equal(now), "FailedAt = %v, want %v", got.FailedAt, now)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.Equal(t, "inner boom", got.InnerErrorMessage)
	assert.Equal(t, int64(150), got.ExecutionTimeMS)
}

func TestUpdateOperationNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Operations.Update(context.Background(), makeTestOperation())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertOperation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	op := makeTestOperation()

	_, err := s.Operations.Upsert(ctx, op)
	require.NoError(t, err, "insert")
	op.Status = model.StatusRunning
	_, err = s.Operations.Upsert(ctx, op)
	require.NoError(t, err, "replace")

	got, err := s.Operations.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, got.Status)
}

func TestRemoveOperationIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	op := makeTestOperation()

	_, err := s.Operations.Create(ctx, op)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		require.NoError(t, s.Operations.Remove(ctx, op.ID), "Remove[%d]", i)
	}
	_, err = s.Operations.Get(ctx, op.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryOperationsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Insert 5 operations with staggered creation times.
	for i := 0; i < 5; i++ {
		op := makeTestOperation()
		op.CreatedAt = time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC)
		_, err := s.Operations.Create(ctx, op)
		require.NoError(t, err)
	}

	page, err := s.Operations.Query(ctx, OperationQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Operations, 2)
	// Newest first by default.
	assert.False(t, page.Operations[0].CreatedAt.Before(page.Operations[1].CreatedAt), "operations not in DESC order")

	last, err := s.Operations.Query(ctx, OperationQuery{Page: 3, PageSize: 2, Ascending: true})
	require.NoError(t, err)
	require.Len(t, last.Operations, 1)
	want := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.True(t, last.Operations[0].CreatedAt.Equal(want), "last ascending CreatedAt = %v, want %v", last.Operations[0].CreatedAt, want)
}

func TestQueryOperationsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []struct {
		owner  string
		name   string
		status model.Status
		day    int
	}{
		{"alice", "Monthly Report", model.StatusCompleted, 1},
		{"alice", "delay", model.StatusFailed, 2},
		{"bob", "weekly report", model.StatusCompleted, 3},
		{"bob", "other", model.StatusPending, 10},
	}
	for _, sd := range seed {
		op := makeTestOperation()
		op.OwnerID = sd.owner
		op.Name = sd.name
		op.Status = sd.status
		op.CreatedAt = time.Date(2026, 1, sd.day, 0, 0, 0, 0, time.UTC)
		_, err := s.Operations.Create(ctx, op)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		query OperationQuery
		want  int
	}{
		{"no filter", OperationQuery{}, 4},
		{"owner", OperationQuery{OwnerID: "alice"}, 2},
		{"status set", OperationQuery{Statuses: []model.Status{model.StatusCompleted, model.StatusPending}}, 3},
		{"search is case-insensitive", OperationQuery{Search: "REPORT"}, 2},
		{"search description", OperationQuery{Search: "sample job"}, 4},
		{"date range", OperationQuery{
			From: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		}, 2},
		{"combined", OperationQuery{OwnerID: "bob", Search: "report"}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, err := s.Operations.Query(ctx, tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, page.Total)
		})
	}
}

func TestQueryOperationsEmpty(t *testing.T) {
	s := newTestStore(t)

	page, err := s.Operations.Query(context.Background(), OperationQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	require.NotNil(t, page.Operations, "want an empty slice")
	assert.Empty(t, page.Operations)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageSize, page.PageSize)
}

func TestLatestOperations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		op := makeTestOperation()
		op.CreatedAt = time.Date(2026, 2, 1+i, 0, 0, 0, 0, time.UTC)
		if i%2 == 0 {
			op.Status = model.StatusCompleted
		}
		_, err := s.Operations.Create(ctx, op)
		require.NoError(t, err)
		ids = append(ids, op.ID)
	}

	got, err := s.Operations.Latest(ctx, 1, []model.Status{model.StatusCompleted}, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ids[2], got[0].ID)
}

func TestPayloadRoundTripWithDecoder(t *testing.T) {
	s := newTestStore(t, WithPayloadDecoder(decodeSample))
	ctx := context.Background()

	p := &samplePayload{
		PayloadBase: model.PayloadBase{
			ID:          model.NewID(),
			OperationID: model.NewID(),
			PayloadType: "Sample",
			Name:        "sample",
			CreatedAt:   time.Now().UTC(),
		},
		Count: 7,
	}
	_, err := s.Payloads.Create(ctx, p)
	require.NoError(t, err)

	got, err := s.Payloads.GetByOperationID(ctx, p.OperationID)
	require.NoError(t, err)
	typed, ok := got.(*samplePayload)
	require.True(t, ok, "payload type = %T, want *samplePayload", got)
	assert.Equal(t, 7, typed.Count)
	assert.Equal(t, p.OperationID, typed.OperationID)
}

func TestPayloadWithoutDecoderIsRaw(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &samplePayload{
		PayloadBase: model.PayloadBase{ID: model.NewID(), OperationID: "op", PayloadType: "Sample", CreatedAt: time.Now().UTC()},
		Count:       3,
	}
	_, err := s.Payloads.Create(ctx, p)
	require.NoError(t, err)

	got, err := s.Payloads.Get(ctx, p.ID)
	require.NoError(t, err)
	raw, ok := got.(*model.RawPayload)
	require.True(t, ok, "payload type = %T, want *model.RawPayload", got)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw.Data, &fields))
	assert.Equal(t, float64(3), fields["count"])
}

func TestProgressUpsertLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &model.Progress{
		ID:          model.NewID(),
		OperationID: "op-1",
		Status:      model.StatusRunning,
		Message:     "Step 1 of 3",
		Percent:     33,
		CreatedAt:   time.Now().UTC(),
	}
	for i, msg := range []string{"Step 1 of 3", "Step 2 of 3", "Step 3 of 3"} {
		p.Message = msg
		p.Percent = (i + 1) * 33
		_, err := s.Progress.Upsert(ctx, p)
		require.NoError(t, err, "Upsert[%d]", i)
	}

	got, err := s.Progress.GetByOperationID(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, "Step 3 of 3", got.Message)
	assert.Equal(t, 99, got.Percent)

	all, err := s.Progress.ListByOperationID(ctx, "op-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResultCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res := &model.Result{
		ID:          model.NewID(),
		OperationID: "op-1",
		Value:       `{"total":3}`,
		Message:     "done",
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.Results.Create(ctx, res)
	require.NoError(t, err)

	got, err := s.Results.GetByOperationID(ctx, "op-1")
	require.NoError(t, err)
	assert.Equal(t, res.Value, got.Value)
	assert.Equal(t, "done", got.Message)

	_, err = s.Results.Update(ctx, &model.Result{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}
