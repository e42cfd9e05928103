package model

import "testing"

func TestStatusAndPriority_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusTodo, StatusInProgress, StatusDone} {
		if !s.Valid() {
			t.Fatalf("%q should be valid", s)
		}
	}
	for _, s := range []Status{"", "archived", "TODO"} {
		if s.Valid() {
			t.Fatalf("%q should be invalid", s)
		}
	}
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.Valid() {
			t.Fatalf("%q should be valid", p)
		}
	}
	if Priority("urgent").Valid() {
		t.Fatalf("urgent should be invalid")
	}
}

func TestTaskFilter_Offset(t *testing.T) {
	t.Parallel()

	if got := (TaskFilter{Page: 1, Limit: 20}).Offset(); got != 0 {
		t.Fatalf("page 1 offset=%d", got)
	}
	if got := (TaskFilter{Page: 3, Limit: 20}).Offset(); got != 40 {
		t.Fatalf("page 3 offset=%d", got)
	}
}
