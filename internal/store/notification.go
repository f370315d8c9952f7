package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorepoints/internal/model"
)

type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func scanNotification(scanner interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var modified sql.NullInt64
	var read int

	err := scanner.Scan(
		&n.ID, &n.SenderID, &n.Recipient, &n.SubjectID, &n.Kind, &n.Status,
		&n.Points, &modified, &n.Note, &read, &n.RewardTitle, &n.RewardDesc,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if modified.Valid {
		v := int(modified.Int64)
		n.ModifiedPoints = &v
	}
	n.Read = read != 0
	return &n, nil
}

const notificationCols = `id, sender_id, recipient, subject_id, kind, status, points, modified_points, note, is_read, reward_title, reward_description, created_at`

// Create inserts a notification. Status defaults to pending when unset.
func (s *NotificationStore) Create(n model.Notification) (*model.Notification, error) {
	if n.Status == "" {
		n.Status = model.StatusPending
	}

	var modified sql.NullInt64
	if n.ModifiedPoints != nil {
		modified = sql.NullInt64{Int64: int64(*n.ModifiedPoints), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO notifications (sender_id, recipient, subject_id, kind, status, points, modified_points, note, reward_title, reward_description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.SenderID, n.Recipient, n.SubjectID, n.Kind, n.Status, n.Points,
		modified, n.Note, n.RewardTitle, n.RewardDesc,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *NotificationStore) GetByID(id int64) (*model.Notification, error) {
	row := s.db.QueryRow(`SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListByRecipient returns a recipient's notifications, newest first.
func (s *NotificationStore) ListByRecipient(recipient string) ([]model.Notification, error) {
	rows, err := s.db.Query(
		`SELECT `+notificationCols+` FROM notifications WHERE recipient = ? ORDER BY created_at DESC, id DESC`,
		recipient,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

// MarkRead sets the read flag. The only mutation allowed after audit.
func (s *NotificationStore) MarkRead(id int64) error {
	_, err := s.db.Exec(`UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
