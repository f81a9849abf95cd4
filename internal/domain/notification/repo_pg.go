package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const notificationCols = `id, user_id, notification_type, title, message,
	link_url, is_read, read_at, created_at, updated_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.NotificationType, &n.Title,
		&n.Message, &n.LinkURL, &n.IsRead, &n.ReadAt, &n.CreatedAt,
		&n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notifications (id, user_id, notification_type, title,
			message, link_url, is_read, read_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		n.ID, n.UserID, n.NotificationType, n.Title, n.Message, n.LinkURL,
		n.IsRead, n.ReadAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	return scanNotification(r.conn(ctx).QueryRow(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *repoPG) Update(ctx context.Context, n *Notification) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notifications SET is_read=$3, read_at=$4, updated_at=NOW()
		WHERE id = $1 AND user_id = $2`,
		n.ID, n.UserID, n.IsRead, n.ReadAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*Notification, int, error) {
	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where += fmt.Sprintf(` AND notification_type = $%d`, len(args))
	}
	if filter.UnreadOnly {
		where += ` AND NOT is_read`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM notifications %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		notificationCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&count)
	return count, err
}

// -- Message logs --

type logRepoPG struct{ pool *pgxpool.Pool }

func NewLogRepoPG(pool *pgxpool.Pool) LogRepository {
	return &logRepoPG{pool: pool}
}

func (r *logRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const logCols = `id, channel, recipient, subject, body, template_id, status,
	error_message, sent_at, created_at`

func (r *logRepoPG) Insert(ctx context.Context, entry *MessageLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO message_logs (id, channel, recipient, subject, body,
			template_id, status, error_message, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.ID, entry.Channel, entry.Recipient, entry.Subject, entry.Body,
		entry.TemplateID, entry.Status, entry.ErrorMessage, entry.SentAt)
	return err
}

func (r *logRepoPG) List(ctx context.Context, filter LogFilter) ([]*MessageLog, int, error) {
	where := `WHERE TRUE`
	args := []interface{}{}
	if filter.Channel != "" {
		args = append(args, filter.Channel)
		where += fmt.Sprintf(` AND channel = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Recipient != "" {
		args = append(args, filter.Recipient)
		where += fmt.Sprintf(` AND recipient = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM message_logs `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM message_logs %s ORDER BY sent_at DESC LIMIT $%d OFFSET $%d`,
		logCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*MessageLog
	for rows.Next() {
		var entry MessageLog
		if err := rows.Scan(&entry.ID, &entry.Channel, &entry.Recipient,
			&entry.Subject, &entry.Body, &entry.TemplateID, &entry.Status,
			&entry.ErrorMessage, &entry.SentAt, &entry.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &entry)
	}
	return items, total, rows.Err()
}
