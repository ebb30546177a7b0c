package audit

import (
	"context"
	"testing"
)

func TestAppendAndList(t *testing.T) {
	log, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	events := []Event{
		{AttemptID: "a1", Kind: KindViolation, Reason: "tab_switch", Sequence: 1, Count: 1},
		{AttemptID: "a2", Kind: KindViolation, Reason: "blur", Sequence: 1, Count: 1},
		{AttemptID: "a1", Kind: KindDuplicate, Reason: "tab_switch", Sequence: 1, Count: 1},
		{AttemptID: "a1", Kind: KindBlocked, Reason: "copy", Sequence: 2, Count: 2, Action: "block"},
	}
	for i := range events {
		if err := log.Append(ctx, &events[i]); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := log.ListByAttempt(ctx, "a1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events for a1, got %d", len(got))
	}
	wantKinds := []Kind{KindViolation, KindDuplicate, KindBlocked}
	for i, k := range wantKinds {
		if got[i].Kind != k {
			t.Errorf("event %d: kind = %s, want %s", i, got[i].Kind, k)
		}
		if got[i].CreatedAt.IsZero() {
			t.Errorf("event %d: CreatedAt not set", i)
		}
	}

	none, err := log.ListByAttempt(ctx, "missing")
	if err != nil {
		t.Fatalf("list missing: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no events, got %d", len(none))
	}
}
