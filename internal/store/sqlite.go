package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/seantiz/asyncops/internal/model"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS operations (
    id                  TEXT PRIMARY KEY,
    owner_id            TEXT NOT NULL DEFAULT '',
    payload_type        TEXT NOT NULL,
    name                TEXT NOT NULL DEFAULT '',
    description         TEXT NOT NULL DEFAULT '',
    status              TEXT NOT NULL,
    created_at          DATETIME NOT NULL,
    started_at          DATETIME,
    completed_at        DATETIME,
    failed_at           DATETIME,
    canceled_at         DATETIME,
    error_message       TEXT NOT NULL DEFAULT '',
    inner_error_message TEXT NOT NULL DEFAULT '',
    error_stack_trace   TEXT NOT NULL DEFAULT '',
    execution_time_ms   INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS idx_operations_created_at ON operations (created_at)`,
	`CREATE TABLE IF NOT EXISTS payloads (
    id           TEXT PRIMARY KEY,
    owner_id     TEXT NOT NULL DEFAULT '',
    operation_id TEXT NOT NULL,
    payload_type TEXT NOT NULL,
    name         TEXT NOT NULL DEFAULT '',
    description  TEXT NOT NULL DEFAULT '',
    created_at   DATETIME NOT NULL,
    data         BLOB
)`,
	`CREATE INDEX IF NOT EXISTS idx_payloads_operation_id ON payloads (operation_id)`,
	`CREATE TABLE IF NOT EXISTS progress (
    id           TEXT PRIMARY KEY,
    operation_id TEXT NOT NULL,
    owner_id     TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL,
    message      TEXT NOT NULL DEFAULT '',
    percent      INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_progress_operation_id ON progress (operation_id)`,
	`CREATE TABLE IF NOT EXISTS results (
    id           TEXT PRIMARY KEY,
    operation_id TEXT NOT NULL,
    owner_id     TEXT NOT NULL DEFAULT '',
    value        TEXT NOT NULL DEFAULT '',
    message      TEXT NOT NULL DEFAULT '',
    created_at   DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_results_operation_id ON results (operation_id)`,
}

const sqliteBackendName = "sqlite"

// PayloadDecoder rebuilds a typed payload from its stored JSON.
type PayloadDecoder func(payloadType string, data []byte) (model.Payload, error)

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithPayloadDecoder makes payload reads return typed payloads. Without it, or
// when the decoder fails, reads return *model.RawPayload.
func WithPayloadDecoder(d PayloadDecoder) SQLiteOption {
	return func(s *SQLiteStore) { s.decode = d }
}

// SQLiteStore holds the relational backend.
type SQLiteStore struct {
	db     *sql.DB
	decode PayloadDecoder
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migration: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Storage returns the repositories backed by this database.
func (s *SQLiteStore) Storage() *Storage {
	return &Storage{
		Name:       sqliteBackendName,
		Operations: &sqliteOperations{db: s.db},
		Payloads:   &sqlitePayloads{db: s.db, decode: s.decode},
		Progress:   &sqliteProgress{db: s.db},
		Results:    &sqliteResults{db: s.db},
		Closer:     s,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func utc(t time.Time) time.Time { return t.UTC() }

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// ---- operations ----

const operationColumns = `id, owner_id, payload_type, name, description, status,
	created_at, started_at, completed_at, failed_at, canceled_at,
	error_message, inner_error_message, error_stack_trace, execution_time_ms`

type sqliteOperations struct {
	db *sql.DB
}

var _ OperationRepository = (*sqliteOperations)(nil)

func operationArgs(op *model.Operation) []any {
	return []any{
		op.ID, op.OwnerID, op.PayloadType, op.Name, op.Description, string(op.Status),
		utc(op.CreatedAt), utcPtr(op.StartedAt), utcPtr(op.CompletedAt), utcPtr(op.FailedAt), utcPtr(op.CanceledAt),
		op.ErrorMessage, op.InnerErrorMessage, op.ErrorStackTrace, op.ExecutionTimeMS,
	}
}

func scanOperation(r rowScanner) (*model.Operation, error) {
	op := &model.Operation{}
	err := r.Scan(
		&op.ID, &op.OwnerID, &op.PayloadType, &op.Name, &op.Description, &op.Status,
		&op.CreatedAt, &op.StartedAt, &op.CompletedAt, &op.FailedAt, &op.CanceledAt,
		&op.ErrorMessage, &op.InnerErrorMessage, &op.ErrorStackTrace, &op.ExecutionTimeMS,
	)
	return op, err
}

func (r *sqliteOperations) Create(ctx context.Context, op *model.Operation) (*model.Operation, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operations (`+operationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		operationArgs(op)...,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, op.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert operation: %w", err)
	}
	return op.Clone(), nil
}

func (r *sqliteOperations) Get(ctx context.Context, id string) (*model.Operation, error) {
	op, err := scanOperation(r.db.QueryRowContext(ctx,
		`SELECT `+operationColumns+` FROM operations WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get operation: %w", err)
	}
	return op, nil
}

func (r *sqliteOperations) Update(ctx context.Context, op *model.Operation) (*model.Operation, error) {
	args := operationArgs(op)
	res, err := r.db.ExecContext(ctx,
		`UPDATE operations SET
			owner_id = ?, payload_type = ?, name = ?, description = ?, status = ?,
			created_at = ?, started_at = ?, completed_at = ?, failed_at = ?, canceled_at = ?,
			error_message = ?, inner_error_message = ?, error_stack_trace = ?, execution_time_ms = ?
		WHERE id = ?`,
		append(args[1:], op.ID)...,
	)
	if err != nil {
		return nil, fmt.Errorf("update operation: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return op.Clone(), nil
}

func (r *sqliteOperations) Upsert(ctx context.Context, op *model.Operation) (*model.Operation, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operations (`+operationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			payload_type = excluded.payload_type,
			name = excluded.name,
			description = excluded.description,
			status = excluded.status,
			created_at = excluded.created_at,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			failed_at = excluded.failed_at,
			canceled_at = excluded.canceled_at,
			error_message = excluded.error_message,
			inner_error_message = excluded.inner_error_message,
			error_stack_trace = excluded.error_stack_trace,
			execution_time_ms = excluded.execution_time_ms`,
		operationArgs(op)...,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert operation: %w", err)
	}
	return op.Clone(), nil
}

func (r *sqliteOperations) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM operations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete operation: %w", err)
	}
	return nil
}

func (r *sqliteOperations) Latest(ctx context.Context, count int, statuses []model.Status, ownerID string) ([]*model.Operation, error) {
	if count <= 0 {
		count = defaultPageSize
	}
	where, args := operationFilter(OperationQuery{Statuses: statuses, OwnerID: ownerID})
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+operationColumns+` FROM operations`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ?`,
		append(args, count)...,
	)
	if err != nil {
		return nil, fmt.Errorf("list latest operations: %w", err)
	}
	return collectOperations(rows)
}

// Query returns a page of operations matching q along with the total count
// of all matches.
func (r *sqliteOperations) Query(ctx context.Context, q OperationQuery) (*OperationPage, error) {
	q = q.Normalize()
	where, args := operationFilter(q)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM operations`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count operations: %w", err)
	}

	order := "DESC"
	if q.Ascending {
		order = "ASC"
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT `+operationColumns+` FROM operations`+where+
			` ORDER BY created_at `+order+`, id `+order+` LIMIT ? OFFSET ?`,
		append(args, q.PageSize, q.Offset())...,
	)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	ops, err := collectOperations(rows)
	if err != nil {
		return nil, err
	}
	if ops == nil {
		ops = []*model.Operation{}
	}

	return &OperationPage{
		Operations: ops,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}

// operationFilter renders the non-paging filters of q as a WHERE clause.
func operationFilter(q OperationQuery) (string, []any) {
	var conds []string
	var args []any

	if !q.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, q.To.UTC())
	}
	if q.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if len(q.Statuses) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(q.Statuses)), ", ")
		conds = append(conds, "status IN ("+marks+")")
		for _, st := range q.Statuses {
			args = append(args, string(st))
		}
	}
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		pattern := "%" + search + "%"
		conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func collectOperations(rows *sql.Rows) ([]*model.Operation, error) {
	defer rows.Close()

	var ops []*model.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

// ---- payloads ----

const payloadColumns = `id, owner_id, operation_id, payload_type, name, description, created_at, data`

type sqlitePayloads struct {
	db     *sql.DB
	decode PayloadDecoder
}

var _ ChildRepository[model.Payload] = (*sqlitePayloads)(nil)

func payloadArgs(p model.Payload) ([]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	b := p.Base()
	return []any{b.ID, b.OwnerID, b.OperationID, b.PayloadType, b.Name, b.Description, utc(b.CreatedAt), data}, nil
}

func (r *sqlitePayloads) scan(row rowScanner) (model.Payload, error) {
	var base model.PayloadBase
	var data []byte
	if err := row.Scan(
		&base.ID, &base.OwnerID, &base.OperationID, &base.PayloadType,
		&base.Name, &base.Description, &base.CreatedAt, &data,
	); err != nil {
		return nil, err
	}
	if r.decode != nil {
		if p, err := r.decode(base.PayloadType, data); err == nil {
			*p.Base() = base
			return p, nil
		}
	}
	return &model.RawPayload{PayloadBase: base, Data: data}, nil
}

func (r *sqlitePayloads) Create(ctx context.Context, p model.Payload) (model.Payload, error) {
	args, err := payloadArgs(p)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO payloads (`+payloadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.RecordID())
	}
	if err != nil {
		return nil, fmt.Errorf("insert payload: %w", err)
	}
	return p, nil
}

func (r *sqlitePayloads) Get(ctx context.Context, id string) (model.Payload, error) {
	p, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+payloadColumns+` FROM payloads WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}
	return p, nil
}

func (r *sqlitePayloads) GetByOperationID(ctx context.Context, operationID string) (model.Payload, error) {
	p, err := r.scan(r.db.QueryRowContext(ctx,
		`SELECT `+payloadColumns+` FROM payloads WHERE operation_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, operationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payload by operation: %w", err)
	}
	return p, nil
}

func (r *sqlitePayloads) ListByOperationID(ctx context.Context, operationID string) ([]model.Payload, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+payloadColumns+` FROM payloads WHERE operation_id = ?
		ORDER BY created_at ASC, id ASC`, operationID)
	if err != nil {
		return nil, fmt.Errorf("list payloads: %w", err)
	}
	defer rows.Close()

	var out []model.Payload
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payload: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payloads: %w", err)
	}
	return out, nil
}

func (r *sqlitePayloads) Update(ctx context.Context, p model.Payload) (model.Payload, error) {
	args, err := payloadArgs(p)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE payloads SET owner_id = ?, operation_id = ?, payload_type = ?, name = ?,
			description = ?, created_at = ?, data = ?
		WHERE id = ?`, append(args[1:], args[0])...)
	if err != nil {
		return nil, fmt.Errorf("update payload: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *sqlitePayloads) Upsert(ctx context.Context, p model.Payload) (model.Payload, error) {
	args, err := payloadArgs(p)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO payloads (`+payloadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			operation_id = excluded.operation_id,
			payload_type = excluded.payload_type,
			name = excluded.name,
			description = excluded.description,
			created_at = excluded.created_at,
			data = excluded.data`, args...)
	if err != nil {
		return nil, fmt.Errorf("upsert payload: %w", err)
	}
	return p, nil
}

func (r *sqlitePayloads) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payloads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete payload: %w", err)
	}
	return nil
}

// ---- progress ----

const progressColumns = `id, operation_id, owner_id, status, message, percent, created_at`

type sqliteProgress struct {
	db *sql.DB
}

var _ ChildRepository[*model.Progress] = (*sqliteProgress)(nil)

func progressArgs(p *model.Progress) []any {
	return []any{p.ID, p.OperationID, p.OwnerID, string(p.Status), p.Message, p.Percent, utc(p.CreatedAt)}
}

func scanProgress(r rowScanner) (*model.Progress, error) {
	p := &model.Progress{}
	err := r.Scan(&p.ID, &p.OperationID, &p.OwnerID, &p.Status, &p.Message, &p.Percent, &p.CreatedAt)
	return p, err
}

func (r *sqliteProgress) Create(ctx context.Context, p *model.Progress) (*model.Progress, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO progress (`+progressColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`, progressArgs(p)...)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert progress: %w", err)
	}
	c := *p
	return &c, nil
}

func (r *sqliteProgress) Get(ctx context.Context, id string) (*model.Progress, error) {
	p, err := scanProgress(r.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

func (r *sqliteProgress) GetByOperationID(ctx context.Context, operationID string) (*model.Progress, error) {
	p, err := scanProgress(r.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE operation_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, operationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get progress by operation: %w", err)
	}
	return p, nil
}

func (r *sqliteProgress) ListByOperationID(ctx context.Context, operationID string) ([]*model.Progress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE operation_id = ?
		ORDER BY created_at ASC, id ASC`, operationID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []*model.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

func (r *sqliteProgress) Update(ctx context.Context, p *model.Progress) (*model.Progress, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE progress SET operation_id = ?, owner_id = ?, status = ?, message = ?, percent = ?, created_at = ?
		WHERE id = ?`,
		p.OperationID, p.OwnerID, string(p.Status), p.Message, p.Percent, utc(p.CreatedAt), p.ID)
	if err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	c := *p
	return &c, nil
}

func (r *sqliteProgress) Upsert(ctx context.Context, p *model.Progress) (*model.Progress, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO progress (`+progressColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			operation_id = excluded.operation_id,
			owner_id = excluded.owner_id,
			status = excluded.status,
			message = excluded.message,
			percent = excluded.percent,
			created_at = excluded.created_at`, progressArgs(p)...)
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	c := *p
	return &c, nil
}

func (r *sqliteProgress) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM progress WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

// ---- results ----

const resultColumns = `id, operation_id, owner_id, value, message, created_at`

type sqliteResults struct {
	db *sql.DB
}

var _ ChildRepository[*model.Result] = (*sqliteResults)(nil)

func resultArgs(res *model.Result) []any {
	return []any{res.ID, res.OperationID, res.OwnerID, res.Value, res.Message, utc(res.CreatedAt)}
}

func scanResult(r rowScanner) (*model.Result, error) {
	res := &model.Result{}
	err := r.Scan(&res.ID, &res.OperationID, &res.OwnerID, &res.Value, &res.Message, &res.CreatedAt)
	return res, err
}

func (r *sqliteResults) Create(ctx context.Context, res *model.Result) (*model.Result, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO results (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?)`, resultArgs(res)...)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, res.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert result: %w", err)
	}
	c := *res
	return &c, nil
}

func (r *sqliteResults) Get(ctx context.Context, id string) (*model.Result, error) {
	res, err := scanResult(r.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return res, nil
}

func (r *sqliteResults) GetByOperationID(ctx context.Context, operationID string) (*model.Result, error) {
	res, err := scanResult(r.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE operation_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, operationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result by operation: %w", err)
	}
	return res, nil
}

func (r *sqliteResults) ListByOperationID(ctx context.Context, operationID string) ([]*model.Result, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE operation_id = ?
		ORDER BY created_at ASC, id ASC`, operationID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []*model.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

func (r *sqliteResults) Update(ctx context.Context, res *model.Result) (*model.Result, error) {
	sqlRes, err := r.db.ExecContext(ctx,
		`UPDATE results SET operation_id = ?, owner_id = ?, value = ?, message = ?, created_at = ?
		WHERE id = ?`,
		res.OperationID, res.OwnerID, res.Value, res.Message, utc(res.CreatedAt), res.ID)
	if err != nil {
		return nil, fmt.Errorf("update result: %w", err)
	}
	if err := checkAffected(sqlRes); err != nil {
		return nil, err
	}
	c := *res
	return &c, nil
}

func (r *sqliteResults) Upsert(ctx context.Context, res *model.Result) (*model.Result, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO results (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			operation_id = excluded.operation_id,
			owner_id = excluded.owner_id,
			value = excluded.value,
			message = excluded.message,
			created_at = excluded.created_at`, resultArgs(res)...)
	if err != nil {
		return nil, fmt.Errorf("upsert result: %w", err)
	}
	c := *res
	return &c, nil
}

func (r *sqliteResults) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}
