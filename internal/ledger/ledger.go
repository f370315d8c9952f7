// Package ledger implements the points-and-approval engine: task completion,
// reward claiming, and the parent audit that finalizes or reverses the
// provisional point changes. The engine owns no state of its own; each
// operation runs as a single SQL transaction across accounts, tasks, rewards,
// and notifications so the stores never diverge on partial failure.
package ledger

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukerupert/chorepoints/internal/model"
)

type Engine struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewEngine(db *sql.DB, logger *slog.Logger) *Engine {
	return &Engine{db: db, logger: logger}
}

// CompletionResult reports the outcome of CompleteTask.
type CompletionResult struct {
	TaskID           int64  `json:"task_id"`
	KidID            int64  `json:"kid_id"`
	PointsCredited   int    `json:"points_credited"`
	Balance          int    `json:"balance"`
	AlreadyCompleted bool   `json:"already_completed"`
	NotificationID   int64  `json:"notification_id,omitempty"`
	Recipient        string `json:"-"`
}

// CompleteTask records that a kid completed a task: the task's points are
// credited to the kid immediately (optimistic credit), the kid joins the
// completion set, and a pending notification is sent to the parent for audit.
// Completing a task twice in the same cycle is a no-op: no second credit, no
// duplicate completion row, no second notification.
func (e *Engine) CompleteTask(kidID, taskID int64) (*CompletionResult, error) {
	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var points int
	var createdBy int64
	err = tx.QueryRow(`SELECT points, created_by FROM tasks WHERE id = ?`, taskID).
		Scan(&points, &createdBy)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	var assigned bool
	err = tx.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM task_assignments WHERE task_id = ? AND kid_id = ?)`,
		taskID, kidID,
	).Scan(&assigned)
	if err != nil {
		return nil, fmt.Errorf("check assignment: %w", err)
	}
	if !assigned {
		return nil, fmt.Errorf("%w: kid %d is not assigned to task %d", ErrUnauthorized, kidID, taskID)
	}

	// The insert doubles as the membership check, so two racing completions
	// cannot both credit.
	result, err := tx.Exec(
		`INSERT OR IGNORE INTO task_completions (task_id, kid_id) VALUES (?, ?)`,
		taskID, kidID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if inserted == 0 {
		balance, err := accountPoints(tx, kidID)
		if err != nil {
			return nil, err
		}
		return &CompletionResult{
			TaskID:           taskID,
			KidID:            kidID,
			Balance:          balance,
			AlreadyCompleted: true,
		}, nil
	}

	if _, err := tx.Exec(
		`UPDATE accounts SET points = points + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		points, kidID,
	); err != nil {
		return nil, fmt.Errorf("credit points: %w", err)
	}

	recipient, err := parentRecipientFor(tx, kidID, createdBy)
	if err != nil {
		return nil, err
	}

	notifID, err := insertNotification(tx, model.Notification{
		SenderID:  kidID,
		Recipient: recipient,
		SubjectID: taskID,
		Kind:      model.KindTask,
		Status:    model.StatusPending,
		Points:    points,
	})
	if err != nil {
		return nil, err
	}

	balance, err := accountPoints(tx, kidID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	e.logger.Info("task completed",
		"task_id", taskID, "kid_id", kidID, "points", points, "balance", balance)

	return &CompletionResult{
		TaskID:         taskID,
		KidID:          kidID,
		PointsCredited: points,
		Balance:        balance,
		NotificationID: notifID,
		Recipient:      recipient,
	}, nil
}

// ClaimResult reports the outcome of ClaimReward.
type ClaimResult struct {
	RewardID       int64  `json:"reward_id"`
	KidID          int64  `json:"kid_id"`
	PointsSpent    int    `json:"points_spent"`
	Balance        int    `json:"balance"`
	NotificationID int64  `json:"notification_id"`
	Recipient      string `json:"-"`
}

// ClaimReward debits the reward's cost from the kid's balance, adds the kid
// to the claim set, and emits a pending notification to the owning parent.
// The claim is provisional: a parent rejection later refunds the cost.
func (e *Engine) ClaimReward(kidID, rewardID int64) (*ClaimResult, error) {
	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var role string
	var balance int
	err = tx.QueryRow(`SELECT role, points FROM accounts WHERE id = ?`, kidID).
		Scan(&role, &balance)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, kidID)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if role != model.RoleKid {
		return nil, fmt.Errorf("%w: only kids can claim rewards", ErrUnauthorized)
	}

	var r model.Reward
	err = tx.QueryRow(
		`SELECT id, title, description, points_needed, parent_email, repeat FROM rewards WHERE id = ?`,
		rewardID,
	).Scan(&r.ID, &r.Title, &r.Description, &r.PointsNeeded, &r.ParentEmail, &r.Repeat)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: reward %d", ErrNotFound, rewardID)
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}

	if r.Repeat != model.RepeatUnlimited {
		var claimed bool
		err = tx.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM reward_claims WHERE reward_id = ? AND kid_id = ?)`,
			rewardID, kidID,
		).Scan(&claimed)
		if err != nil {
			return nil, fmt.Errorf("check claim: %w", err)
		}
		if claimed {
			if r.Repeat == model.RepeatNone {
				return nil, fmt.Errorf("%w: reward already claimed", ErrInvalidState)
			}
			return nil, fmt.Errorf("%w: reward already claimed this %s interval", ErrInvalidState, r.Repeat)
		}
	}

	if balance < r.PointsNeeded {
		return nil, fmt.Errorf("%w: not enough points (have %d, need %d)", ErrInvalidState, balance, r.PointsNeeded)
	}

	// The upsert branch is only reachable for unlimited rewards; bounded
	// rewards were rejected above when already in the set.
	if _, err := tx.Exec(
		`INSERT INTO reward_claims (reward_id, kid_id) VALUES (?, ?)
		 ON CONFLICT (reward_id, kid_id) DO UPDATE SET times = times + 1, claimed_at = CURRENT_TIMESTAMP`,
		rewardID, kidID,
	); err != nil {
		return nil, fmt.Errorf("insert claim: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE accounts SET points = points - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		r.PointsNeeded, kidID,
	); err != nil {
		return nil, fmt.Errorf("debit points: %w", err)
	}

	notifID, err := insertNotification(tx, model.Notification{
		SenderID:    kidID,
		Recipient:   r.ParentEmail,
		SubjectID:   rewardID,
		Kind:        model.KindReward,
		Status:      model.StatusPending,
		Points:      r.PointsNeeded,
		RewardTitle: r.Title,
		RewardDesc:  r.Description,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	e.logger.Info("reward claimed",
		"reward_id", rewardID, "kid_id", kidID, "points_spent", r.PointsNeeded,
		"balance", balance-r.PointsNeeded)

	return &ClaimResult{
		RewardID:       rewardID,
		KidID:          kidID,
		PointsSpent:    r.PointsNeeded,
		Balance:        balance - r.PointsNeeded,
		NotificationID: notifID,
		Recipient:      r.ParentEmail,
	}, nil
}

// Audit decisions.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// AuditResult reports the outcome of AuditNotification.
type AuditResult struct {
	NotificationID int64  `json:"notification_id"`
	Status         string `json:"status"`
	KidID          int64  `json:"kid_id"`
	PointsApplied  int    `json:"points_applied"`
	Balance        int    `json:"balance"`
	OutcomeID      int64  `json:"outcome_notification_id"`
	KidRecipient   string `json:"-"`
}

// AuditNotification resolves a pending notification with the parent's
// decision. Only the addressed recipient may audit. The balance effect is
// asymmetric by kind, mirroring the opposite provisional directions at
// action time:
//
//	task   approved: credit the effective points to the kid (on top of the
//	                 completion-time credit)
//	task   rejected: no balance change (the completion credit stands)
//	reward approved: no balance change (the cost stays debited)
//	reward rejected: refund the effective points to the kid
//
// A second notification addressed back to the kid records the outcome.
func (e *Engine) AuditNotification(parentEmail string, notificationID int64, decision string, overridePoints *int, note string) (*AuditResult, error) {
	if decision != DecisionApproved && decision != DecisionRejected {
		return nil, fmt.Errorf("%w: decision must be %q or %q", ErrValidation, DecisionApproved, DecisionRejected)
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var n model.Notification
	err = tx.QueryRow(
		`SELECT id, sender_id, recipient, subject_id, kind, status, points FROM notifications WHERE id = ?`,
		notificationID,
	).Scan(&n.ID, &n.SenderID, &n.Recipient, &n.SubjectID, &n.Kind, &n.Status, &n.Points)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: notification %d", ErrNotFound, notificationID)
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}

	if n.Recipient != parentEmail {
		return nil, fmt.Errorf("%w: notification is not addressed to %s", ErrUnauthorized, parentEmail)
	}
	if n.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: notification already %s", ErrInvalidState, n.Status)
	}

	var parentID int64
	err = tx.QueryRow(`SELECT id FROM accounts WHERE email = ?`, parentEmail).Scan(&parentID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, parentEmail)
	}
	if err != nil {
		return nil, fmt.Errorf("get auditor account: %w", err)
	}

	n.ModifiedPoints = overridePoints
	effective := n.EffectivePoints()

	var delta int
	switch {
	case n.Kind == model.KindTask && decision == DecisionApproved:
		delta = effective
	case n.Kind == model.KindReward && decision == DecisionRejected:
		delta = effective
	}

	var modified sql.NullInt64
	if overridePoints != nil {
		modified = sql.NullInt64{Int64: int64(*overridePoints), Valid: true}
	}
	if _, err := tx.Exec(
		`UPDATE notifications SET status = ?, modified_points = ?, note = ? WHERE id = ?`,
		decision, modified, note, notificationID,
	); err != nil {
		return nil, fmt.Errorf("update notification: %w", err)
	}

	if delta != 0 {
		if _, err := tx.Exec(
			`UPDATE accounts SET points = points + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			delta, n.SenderID,
		); err != nil {
			return nil, fmt.Errorf("apply audit points: %w", err)
		}
	}

	var kidRecipient string
	err = tx.QueryRow(
		`SELECT COALESCE(username, email, '') FROM accounts WHERE id = ?`,
		n.SenderID,
	).Scan(&kidRecipient)
	if err != nil {
		return nil, fmt.Errorf("get kid recipient: %w", err)
	}

	outcomeID, err := insertNotification(tx, model.Notification{
		SenderID:  parentID,
		Recipient: kidRecipient,
		SubjectID: n.SubjectID,
		Kind:      n.Kind,
		Status:    decision,
		Points:    effective,
		Note:      note,
	})
	if err != nil {
		return nil, err
	}

	balance, err := accountPoints(tx, n.SenderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	e.logger.Info("notification audited",
		"notification_id", notificationID, "kind", n.Kind, "decision", decision,
		"points_applied", delta, "kid_id", n.SenderID, "balance", balance)

	return &AuditResult{
		NotificationID: notificationID,
		Status:         decision,
		KidID:          n.SenderID,
		PointsApplied:  delta,
		Balance:        balance,
		OutcomeID:      outcomeID,
		KidRecipient:   kidRecipient,
	}, nil
}

// parentRecipientFor resolves who is notified about a kid's task completion:
// the kid's linked parent, falling back to the task creator's email.
func parentRecipientFor(tx *sql.Tx, kidID, createdBy int64) (string, error) {
	var parentEmail string
	err := tx.QueryRow(`SELECT parent_email FROM accounts WHERE id = ?`, kidID).Scan(&parentEmail)
	if err != nil {
		return "", fmt.Errorf("get kid parent link: %w", err)
	}
	if parentEmail != "" {
		return parentEmail, nil
	}

	var creatorEmail sql.NullString
	err = tx.QueryRow(`SELECT email FROM accounts WHERE id = ?`, createdBy).Scan(&creatorEmail)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("get creator email: %w", err)
	}
	return creatorEmail.String, nil
}

func accountPoints(tx *sql.Tx, id int64) (int, error) {
	var points int
	if err := tx.QueryRow(`SELECT points FROM accounts WHERE id = ?`, id).Scan(&points); err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return points, nil
}

func insertNotification(tx *sql.Tx, n model.Notification) (int64, error) {
	result, err := tx.Exec(
		`INSERT INTO notifications (sender_id, recipient, subject_id, kind, status, points, note, reward_title, reward_description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.SenderID, n.Recipient, n.SubjectID, n.Kind, n.Status, n.Points,
		n.Note, n.RewardTitle, n.RewardDesc,
	)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
