package common

import (
	"strings"
	"testing"
)

func TestLimitSetCooldown(t *testing.T) {
	ls := NewLimitSet(1)

	if reason, ok := ls.CanInteract("adv-1", "inf-1"); !ok {
		t.Fatalf("fresh pair should be allowed, got %q", reason)
	}

	ls.Record("adv-1", "inf-1")

	reason, ok := ls.CanInteract("adv-1", "inf-1")
	if ok {
		t.Fatal("pair inside the window should be blocked")
	}
	if !strings.Contains(reason, "already contacted") {
		t.Fatalf("unexpected reason %q", reason)
	}
}

func TestLimitSetDirectional(t *testing.T) {
	ls := NewLimitSet(1)
	ls.Record("adv-1", "inf-1")

	// The influencer reaching back is a different ordered pair
	if _, ok := ls.CanInteract("inf-1", "adv-1"); !ok {
		t.Fatal("reverse direction should not be blocked")
	}
	if _, ok := ls.CanInteract("adv-1", "inf-2"); !ok {
		t.Fatal("other targets should not be blocked")
	}
}

func TestLimitSetDefaultWindow(t *testing.T) {
	ls := NewLimitSet(0)
	if ls.window != 1 {
		t.Fatalf("zero window should default to 1 hour, got %d", ls.window)
	}
}
