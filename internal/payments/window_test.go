package payments

import (
	"strings"
	"testing"
)

func validWindow() *Window {
	return &Window{
		PayerId:     "adv-1",
		PayeeId:     "inf-1",
		Amount:      250,
		PaymentType: FullPrepay,
		Status:      WindowPending,
	}
}

func TestWindowCheck(t *testing.T) {
	w := validWindow()
	if err := w.Check(); err != nil {
		t.Fatal(err)
	}
	if w.Currency != "usd" {
		t.Fatalf("expected usd default, got %q", w.Currency)
	}

	bad := &Window{PayerId: "u1", PayeeId: "u1", Amount: 0, PaymentType: "iou"}
	err := bad.Check()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{ErrSameParty.Error(), "greater than zero", "unknown payment type"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got %q", want, err)
		}
	}
}

func TestWindowHappyPath(t *testing.T) {
	w := validWindow()
	for _, to := range []string{WindowPaying, WindowPaid, WindowConfirmed, WindowCompleted} {
		if err := w.Transition(to, ""); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
	if w.Status != WindowCompleted {
		t.Fatalf("expected completed, got %s", w.Status)
	}
	if len(w.History) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(w.History))
	}
	for i, h := range w.History {
		if h.Id == "" || h.Ts == 0 {
			t.Errorf("history entry %d missing id or timestamp: %+v", i, h)
		}
	}
}

func TestWindowRetryAfterFailure(t *testing.T) {
	w := validWindow()
	w.Transition(WindowPaying, "")
	if err := w.Transition(WindowFailed, "card declined"); err != nil {
		t.Fatal(err)
	}
	// A failed charge can be retried or written off
	if !w.CanTransition(WindowPaying) || !w.CanTransition(WindowCancelled) {
		t.Fatal("failed window should allow retry and cancel")
	}
	if w.History[len(w.History)-1].Note != "card declined" {
		t.Fatal("failure note missing from history")
	}
}

func TestWindowInvalidTransitions(t *testing.T) {
	w := validWindow()
	if err := w.Transition(WindowPaid, ""); err != ErrBadTransition {
		t.Fatalf("pending->paid should fail, got %v", err)
	}

	w.Status = WindowCompleted
	if w.CanTransition(WindowCancelled) {
		t.Fatal("completed is terminal")
	}
}

func TestWindowEditable(t *testing.T) {
	w := validWindow()
	if !w.Editable() {
		t.Fatal("pending window should be editable")
	}
	w.Transition(WindowPaying, "")
	if w.Editable() {
		t.Fatal("window should freeze once money starts moving")
	}
}
