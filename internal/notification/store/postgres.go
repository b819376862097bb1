package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"desarquivamento/internal/notification/models"
	id "desarquivamento/pkg/domain"
	"desarquivamento/pkg/platform/sentinel"
)

const notificationColumns = `id, user_id, request_id, type, title, description, priority, read, read_at, created_at`

// PostgresStore persists notifications in PostgreSQL. The one-unread-per-
// request rule is backed by a partial unique index.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var readAt sql.NullTime
	if n.ReadAt != nil {
		readAt = sql.NullTime{Time: *n.ReadAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		n.ID,
		n.UserID.Int64(),
		n.RequestID.Int64(),
		string(n.Type),
		n.Title,
		n.Description,
		string(n.Priority),
		n.Read,
		readAt,
		n.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasUnreadForRequest(ctx context.Context, requestID id.RequestID, typ models.Type) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE request_id = $1 AND type = $2 AND read = FALSE)`,
		requestID.Int64(), string(typ),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check unread notification: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, notificationID uuid.UUID) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	n, err := scanNotification(s.db.QueryRowContext(ctx, query, notificationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	args := []any{userID.Int64()}
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkRead keeps the first read timestamp when called twice.
func (s *PostgresStore) MarkRead(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, $2) WHERE id = $1`,
		notificationID, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID id.UserID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		userID.Int64(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete read notifications: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete read notifications rows affected: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n         models.Notification
		userID    int64
		requestID int64
		typ       string
		priority  string
		readAt    sql.NullTime
	)
	if err := row.Scan(&n.ID, &userID, &requestID, &typ, &n.Title, &n.Description, &priority, &n.Read, &readAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.UserID = id.UserID(userID)
	n.RequestID = id.RequestID(requestID)
	n.Type = models.Type(typ)
	n.Priority = models.Priority(priority)
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return &n, nil
}
