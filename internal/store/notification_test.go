package store

import (
	"testing"

	"github.com/dukerupert/chorepoints/internal/model"
)

func TestNotificationCreateDefaultsToPending(t *testing.T) {
	db := setupStoreTestDB(t)
	kid := createTestKid(t, db, "timmy", "alice@example.com")
	s := NewNotificationStore(db)

	n, err := s.Create(model.Notification{
		SenderID:  kid.ID,
		Recipient: "alice@example.com",
		SubjectID: 1,
		Kind:      model.KindTask,
		Points:    10,
	})
	if err != nil {
		t.Fatalf("create notification: %v", err)
	}
	if n.Status != model.StatusPending {
		t.Errorf("status = %q, want %q", n.Status, model.StatusPending)
	}
	if n.Read {
		t.Error("expected new notification to be unread")
	}
	if n.ModifiedPoints != nil {
		t.Error("expected nil modified_points")
	}
}

func TestNotificationListByRecipientNewestFirst(t *testing.T) {
	db := setupStoreTestDB(t)
	kid := createTestKid(t, db, "timmy", "alice@example.com")
	s := NewNotificationStore(db)

	first, _ := s.Create(model.Notification{
		SenderID: kid.ID, Recipient: "alice@example.com", SubjectID: 1,
		Kind: model.KindTask, Points: 10,
	})
	second, _ := s.Create(model.Notification{
		SenderID: kid.ID, Recipient: "alice@example.com", SubjectID: 2,
		Kind: model.KindReward, Points: 20,
	})
	s.Create(model.Notification{
		SenderID: kid.ID, Recipient: "bob@example.com", SubjectID: 3,
		Kind: model.KindTask, Points: 5,
	})

	list, err := s.ListByRecipient("alice@example.com")
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d notifications, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("order = [%d, %d], want [%d, %d]", list[0].ID, list[1].ID, second.ID, first.ID)
	}
}

func TestNotificationMarkRead(t *testing.T) {
	db := setupStoreTestDB(t)
	kid := createTestKid(t, db, "timmy", "alice@example.com")
	s := NewNotificationStore(db)

	n, _ := s.Create(model.Notification{
		SenderID: kid.ID, Recipient: "alice@example.com", SubjectID: 1,
		Kind: model.KindTask, Points: 10,
	})
	if err := s.MarkRead(n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	got, _ := s.GetByID(n.ID)
	if !got.Read {
		t.Error("expected notification to be read")
	}
}

func TestNotificationGetByIDNotFound(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewNotificationStore(db)

	n, err := s.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if n != nil {
		t.Error("expected nil for nonexistent id")
	}
}
