package usecase

import (
	"context"
	"testing"

	"gigtalk/internal/entity"
)

func seedConversation(t *testing.T, msgRepo *fakeMessageRepo, uc MessageUsecase) {
	t.Helper()
	// Three unread from bob to alice, one from alice to bob.
	for _, c := range []string{"one", "two", "three"} {
		if _, err := uc.Send(context.Background(), "bob", "alice", c); err != nil {
			t.Fatalf("seed Send() error = %v", err)
		}
	}
	if _, err := uc.Send(context.Background(), "alice", "bob", "reply"); err != nil {
		t.Fatalf("seed Send() error = %v", err)
	}
}

func newConversationFixture(t *testing.T) (*fakeMessageRepo, ConversationUsecase, MessageUsecase) {
	t.Helper()
	msgRepo := &fakeMessageRepo{}
	userRepo := newFakeUserRepo(
		entity.User{Id: "alice", Name: "Alice"},
		entity.User{Id: "bob", Name: "Bob"},
	)
	notifRepo := newFakeNotificationRepo()
	typing := NewTypingTracker()
	t.Cleanup(typing.Close)
	msgUc := NewMessageUsecase(msgRepo, userRepo, notifRepo, &fakePublisher{}, typing)
	convUc := NewConversationUsecase(msgRepo, userRepo)
	return msgRepo, convUc, msgUc
}

func TestOpen_MarksUnreadExactlyOnce(t *testing.T) {
	msgRepo, convUc, msgUc := newConversationFixture(t)
	seedConversation(t, msgRepo, msgUc)

	detail, err := convUc.Open(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(detail.Messages) != 4 {
		t.Fatalf("Open() returned %d messages, want 4", len(detail.Messages))
	}
	for _, m := range detail.Messages {
		if m.ReceiverId == "alice" && !m.IsRead {
			t.Errorf("message %q to alice still unread after Open", m.Content)
		}
	}

	// Second open: nothing new to mark, same messages, still read.
	marked, err := msgRepo.MarkConversationRead(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("MarkConversationRead() error = %v", err)
	}
	if marked != 0 {
		t.Errorf("second mark-read flipped %d messages, want 0", marked)
	}

	again, err := convUc.Open(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if len(again.Messages) != len(detail.Messages) {
		t.Errorf("second Open() returned %d messages, want %d", len(again.Messages), len(detail.Messages))
	}
}

func TestOpen_DoesNotTouchOppositeDirection(t *testing.T) {
	msgRepo, convUc, msgUc := newConversationFixture(t)
	seedConversation(t, msgRepo, msgUc)

	if _, err := convUc.Open(context.Background(), "alice", "bob"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// Alice's own message to bob stays unread until bob opens.
	unread, err := msgRepo.CountUnread(context.Background(), "bob", "alice")
	if err != nil {
		t.Fatalf("CountUnread() error = %v", err)
	}
	if unread != 1 {
		t.Errorf("bob's unread from alice = %d, want 1", unread)
	}
}

func TestOpen_OrderedOldestFirst(t *testing.T) {
	msgRepo, convUc, msgUc := newConversationFixture(t)
	seedConversation(t, msgRepo, msgUc)

	detail, err := convUc.Open(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i := 1; i < len(detail.Messages); i++ {
		if detail.Messages[i].CreatedAt.Before(detail.Messages[i-1].CreatedAt) {
			t.Fatalf("messages out of order at index %d", i)
		}
	}
	if detail.OtherUser.Id != "bob" {
		t.Errorf("OtherUser.Id = %q, want bob", detail.OtherUser.Id)
	}
}

func TestSummaries_UnreadCountPerCounterpart(t *testing.T) {
	msgRepo, convUc, msgUc := newConversationFixture(t)
	seedConversation(t, msgRepo, msgUc)

	summaries, err := convUc.Summaries(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Summaries() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Summaries(alice) returned %d rows, want 1 (single counterpart)", len(summaries))
	}
	s := summaries[0]
	if s.CounterpartId != "bob" {
		t.Errorf("CounterpartId = %q, want bob", s.CounterpartId)
	}
	if s.UnreadCount != 3 {
		t.Errorf("UnreadCount = %d, want 3", s.UnreadCount)
	}
	if s.LastMessage != "reply" {
		t.Errorf("LastMessage = %q, want reply (latest in either direction)", s.LastMessage)
	}
}

func TestSummaries_BothDirectionsCollapse(t *testing.T) {
	msgRepo, convUc, msgUc := newConversationFixture(t)
	seedConversation(t, msgRepo, msgUc)

	// Both participants see exactly one summary row for the pair,
	// regardless of who sent first.
	for _, userId := range []string{"alice", "bob"} {
		summaries, err := convUc.Summaries(context.Background(), userId)
		if err != nil {
			t.Fatalf("Summaries(%s) error = %v", userId, err)
		}
		if len(summaries) != 1 {
			t.Errorf("Summaries(%s) returned %d rows, want 1", userId, len(summaries))
		}
	}
}
