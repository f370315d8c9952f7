package auth

import (
	"context"
	"testing"
)

func TestActorRoundTrip(t *testing.T) {
	actor := Actor{AccountID: 42, Role: "parent", Email: "mom@example.com", SessionID: 7}
	ctx := WithActor(context.Background(), actor)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected actor in context")
	}
	if got != actor {
		t.Errorf("actor = %+v, want %+v", got, actor)
	}
	if AccountID(ctx) != 42 {
		t.Errorf("AccountID = %d, want 42", AccountID(ctx))
	}
	if !IsParent(ctx) {
		t.Error("expected IsParent true")
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := FromContext(ctx); ok {
		t.Error("expected no actor in empty context")
	}
	if AccountID(ctx) != 0 {
		t.Errorf("AccountID = %d, want 0", AccountID(ctx))
	}
	if IsParent(ctx) {
		t.Error("expected IsParent false")
	}
}

func TestRecipient(t *testing.T) {
	parent := Actor{Role: "parent", Email: "dad@example.com", Username: ""}
	if parent.Recipient() != "dad@example.com" {
		t.Errorf("parent recipient = %q, want email", parent.Recipient())
	}

	kid := Actor{Role: "kid", Username: "sam", Email: ""}
	if kid.Recipient() != "sam" {
		t.Errorf("kid recipient = %q, want username", kid.Recipient())
	}
}
