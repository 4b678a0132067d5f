package optimistic

import (
	"testing"
)

type project struct {
	ID   string
	Name string
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(project{Name: "Launch"}, "action-1")

	if !rec.Pending {
		t.Error("new record must be pending")
	}
	if rec.ActionID != "action-1" {
		t.Errorf("ActionID = %q, want action-1", rec.ActionID)
	}
	if rec.EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt should be set")
	}
}

func TestSet_AddAndValues(t *testing.T) {
	s := NewSet[project]()
	s.SetConfirmed([]project{{ID: "p1", Name: "Alpha"}})
	s.Add(NewRecord(project{Name: "Launch"}, "a1"))

	values := s.Values()
	if len(values) != 2 {
		t.Fatalf("len(Values()) = %d, want 2", len(values))
	}

	// Pending record is spliced in first.
	if !values[0].Pending || values[0].ActionID != "a1" {
		t.Errorf("values[0] = %+v, want pending a1", values[0])
	}
	if values[1].Pending {
		t.Error("confirmed value should not be pending")
	}
}

func TestSet_Confirm(t *testing.T) {
	s := NewSet[project]()
	s.Add(NewRecord(project{Name: "Launch"}, "a1"))

	if !s.Confirm("a1", project{ID: "p2", Name: "Launch"}) {
		t.Fatal("Confirm should succeed for a pending record")
	}

	values := s.Values()
	if len(values) != 1 {
		t.Fatalf("len(Values()) = %d, want 1", len(values))
	}
	if values[0].Pending {
		t.Error("confirmed record should no longer be pending")
	}
	if values[0].Value.ID != "p2" {
		t.Errorf("Value.ID = %q, want p2 (canonical server object)", values[0].Value.ID)
	}

	// Reconciliation happens exactly once.
	if s.Confirm("a1", project{ID: "p3"}) {
		t.Error("second Confirm for the same id should be a no-op")
	}
}

func TestSet_Reject(t *testing.T) {
	s := NewSet[project]()
	s.SetConfirmed([]project{{ID: "p1"}})
	s.Add(NewRecord(project{Name: "Doomed"}, "a1"))

	if !s.Reject("a1") {
		t.Fatal("Reject should succeed for a pending record")
	}
	if len(s.Values()) != 1 {
		t.Errorf("len(Values()) = %d, want 1 after reject", len(s.Values()))
	}
	if s.Reject("a1") {
		t.Error("second Reject for the same id should be a no-op")
	}
}

func TestSet_SetConfirmed_KeepsPending(t *testing.T) {
	s := NewSet[project]()
	s.Add(NewRecord(project{Name: "Pending"}, "a1"))
	s.SetConfirmed([]project{{ID: "p1"}, {ID: "p2"}})

	if s.PendingCount() != 1 {
		t.Errorf("PendingCount() = %d, want 1", s.PendingCount())
	}
	if len(s.Values()) != 3 {
		t.Errorf("len(Values()) = %d, want 3", len(s.Values()))
	}
}

func TestSet_PendingCount(t *testing.T) {
	s := NewSet[project]()
	if s.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", s.PendingCount())
	}
	s.Add(NewRecord(project{}, "a1"))
	s.Add(NewRecord(project{}, "a2"))
	if s.PendingCount() != 2 {
		t.Errorf("PendingCount() = %d, want 2", s.PendingCount())
	}
}
