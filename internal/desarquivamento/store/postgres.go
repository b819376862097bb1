package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"desarquivamento/internal/desarquivamento/models"
	id "desarquivamento/pkg/domain"
	"desarquivamento/pkg/platform/sentinel"
	"desarquivamento/pkg/platform/tx"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const requestColumns = `id, status, requester_name, process_number, document_reference, document_type,
	urgent, requested_at, retrieved_at, returned_at, department, responsible_server, purpose,
	extension_requested, created_by, assigned_to, created_at, updated_at, deleted_at`

// sortColumns maps the allow-listed sort fields to columns. Caller input is
// never interpolated into SQL.
var sortColumns = map[models.SortField]string{
	models.SortByID:            "id",
	models.SortByRequestedAt:   "requested_at",
	models.SortByCreatedAt:     "created_at",
	models.SortByUpdatedAt:     "updated_at",
	models.SortByStatus:        "status",
	models.SortByRequesterName: "LOWER(requester_name)",
}

// PostgresStore persists requests in PostgreSQL.
// This store is pure I/O: authorization and lifecycle rules live in the
// aggregate and the service. Document-reference uniqueness among live rows is
// enforced by a partial unique index.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed request store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, if any.
func (s *PostgresStore) conn(ctx context.Context) queryer {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM desarquivamentos WHERE id = $1 AND deleted_at IS NULL`
	r, err := scanRequest(s.conn(ctx).QueryRowContext(ctx, query, requestID.Int64()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find request by id: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindByIDWithDeleted(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM desarquivamentos WHERE id = $1`
	r, err := scanRequest(s.conn(ctx).QueryRowContext(ctx, query, requestID.Int64()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find request by id with deleted: %w", err)
	}
	return r, nil
}

// buildFilter renders the WHERE clause and its positional arguments.
func buildFilter(f models.ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if !f.IncludeDeleted {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, string(st))
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if f.DocumentType != "" {
		add("LOWER(document_type) = LOWER($%d)", f.DocumentType)
	}
	if f.RequesterName != "" {
		add(`requester_name ILIKE $%d ESCAPE '\'`, "%"+escapeLike(f.RequesterName)+"%")
	}
	if f.RequestedFrom != nil {
		add("requested_at >= $%d", *f.RequestedFrom)
	}
	if f.RequestedTo != nil {
		add("requested_at <= $%d", *f.RequestedTo)
	}
	if f.Urgent != nil {
		add("urgent = $%d", *f.Urgent)
	}
	if f.CreatedBy != nil {
		add("created_by = $%d", f.CreatedBy.Int64())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) FindAll(ctx context.Context, opts models.ListOptions) (models.Page, error) {
	where, args := buildFilter(opts.Filter)
	conn := s.conn(ctx)

	var total int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM desarquivamentos`+where, args...).Scan(&total); err != nil {
		return models.Page{}, fmt.Errorf("count requests: %w", err)
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = sortColumns[models.SortByCreatedAt]
	}
	direction := "ASC"
	if opts.SortOrder == models.SortDesc {
		direction = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM desarquivamentos%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		requestColumns, where, column, direction, direction, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset())

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return models.Page{}, fmt.Errorf("list requests: %w", err)
	}
	items, err := scanRequests(rows)
	if err != nil {
		return models.Page{}, fmt.Errorf("list requests: %w", err)
	}
	return models.Page{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}

func (s *PostgresStore) Save(ctx context.Context, request *models.Request) error {
	query := `
		INSERT INTO desarquivamentos (status, requester_name, process_number, document_reference, document_type,
			urgent, requested_at, retrieved_at, returned_at, department, responsible_server, purpose,
			extension_requested, created_by, assigned_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`
	var newID int64
	err := s.conn(ctx).QueryRowContext(ctx, query,
		string(request.Status),
		request.RequesterName,
		request.ProcessNumber,
		request.DocumentReference,
		request.DocumentType,
		request.Urgent,
		request.RequestedAt,
		nullTime(request.RetrievedAt),
		nullTime(request.ReturnedAt),
		request.Department,
		request.ResponsibleServer,
		request.Purpose,
		request.ExtensionRequested,
		request.CreatedBy.Int64(),
		nullUser(request.AssignedTo),
		request.CreatedAt,
		request.UpdatedAt,
	).Scan(&newID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save request: %w", err)
	}
	request.ID = id.RequestID(newID)
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, request *models.Request) error {
	query := `
		UPDATE desarquivamentos SET
			status = $2,
			requester_name = $3,
			process_number = $4,
			document_reference = $5,
			document_type = $6,
			urgent = $7,
			requested_at = $8,
			retrieved_at = $9,
			returned_at = $10,
			department = $11,
			responsible_server = $12,
			purpose = $13,
			extension_requested = $14,
			assigned_to = $15,
			updated_at = $16
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := s.conn(ctx).ExecContext(ctx, query,
		request.ID.Int64(),
		string(request.Status),
		request.RequesterName,
		request.ProcessNumber,
		request.DocumentReference,
		request.DocumentType,
		request.Urgent,
		request.RequestedAt,
		nullTime(request.RetrievedAt),
		nullTime(request.ReturnedAt),
		request.Department,
		request.ResponsibleServer,
		request.Purpose,
		request.ExtensionRequested,
		nullUser(request.AssignedTo),
		request.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update request: %w", err)
	}
	return expectOneRow(result, "update request")
}

func (s *PostgresStore) SoftDelete(ctx context.Context, requestID id.RequestID, at time.Time) error {
	result, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE desarquivamentos SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		requestID.Int64(), at)
	if err != nil {
		return fmt.Errorf("soft delete request: %w", err)
	}
	return expectOneRow(result, "soft delete request")
}

func (s *PostgresStore) Restore(ctx context.Context, requestID id.RequestID, at time.Time) error {
	result, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE desarquivamentos SET deleted_at = NULL, updated_at = $2 WHERE id = $1 AND deleted_at IS NOT NULL`,
		requestID.Int64(), at)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("restore request: %w", err)
	}
	return expectOneRow(result, "restore request")
}

func (s *PostgresStore) Delete(ctx context.Context, requestID id.RequestID) error {
	result, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM desarquivamentos WHERE id = $1`, requestID.Int64())
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return expectOneRow(result, "delete request")
}

func (s *PostgresStore) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM desarquivamentos
		WHERE status = $1 AND requested_at < $2 AND deleted_at IS NULL
		ORDER BY id`
	rows, err := s.conn(ctx).QueryContext(ctx, query, string(models.StatusRequested), cutoff)
	if err != nil {
		return nil, fmt.Errorf("find pending requests: %w", err)
	}
	pending, err := scanRequests(rows)
	if err != nil {
		return nil, fmt.Errorf("find pending requests: %w", err)
	}
	return pending, nil
}

// -----------------------------------------------------------------------------
// Row mapping
// -----------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		r           models.Request
		requestID   int64
		status      string
		retrievedAt sql.NullTime
		returnedAt  sql.NullTime
		createdBy   int64
		assignedTo  sql.NullInt64
		deletedAt   sql.NullTime
	)
	err := row.Scan(
		&requestID,
		&status,
		&r.RequesterName,
		&r.ProcessNumber,
		&r.DocumentReference,
		&r.DocumentType,
		&r.Urgent,
		&r.RequestedAt,
		&retrievedAt,
		&returnedAt,
		&r.Department,
		&r.ResponsibleServer,
		&r.Purpose,
		&r.ExtensionRequested,
		&createdBy,
		&assignedTo,
		&r.CreatedAt,
		&r.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ID = id.RequestID(requestID)
	r.Status = models.Status(status)
	r.CreatedBy = id.UserID(createdBy)
	r.RetrievedAt = timePtr(retrievedAt)
	r.ReturnedAt = timePtr(returnedAt)
	r.DeletedAt = timePtr(deletedAt)
	if assignedTo.Valid {
		a := id.UserID(assignedTo.Int64)
		r.AssignedTo = &a
	}
	return &r, nil
}

func scanRequests(rows *sql.Rows) ([]*models.Request, error) {
	defer rows.Close()
	var out []*models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullUser(u *id.UserID) sql.NullInt64 {
	if u == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: u.Int64(), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func expectOneRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
