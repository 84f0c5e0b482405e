package objective

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/jwebster45206/campaign-engine/pkg/clock"
)

type stubResolver map[string]bool

func (r stubResolver) HasObjective(id string) bool { return r[id] }

func TestTracker_GetAutoVivifies(t *testing.T) {
	tr := NewTracker(clock.NewManual(0, 0), nil)

	o := tr.Get("X")
	if o.ID != "X" || o.Visible || o.State != StateActive {
		t.Fatalf("Expected hidden active objective X, got %+v", o)
	}
	if len(tr.All()) != 1 {
		t.Fatalf("Expected objective to be recorded after Get, got %d", len(tr.All()))
	}
}

func TestTracker_SetStateTerminalIsMonotonic(t *testing.T) {
	tr := NewTracker(clock.NewManual(0, 0), nil)

	if !tr.SetState("X", StateSuccess) {
		t.Fatal("Expected first transition to success to report a change")
	}
	if tr.SetState("X", StateSuccess) {
		t.Fatal("Expected repeated success to be a no-op")
	}
	if tr.SetState("X", StateFailure) {
		t.Fatal("Expected failure after success to be rejected")
	}
	if tr.SetState("X", StateActive) {
		t.Fatal("Expected re-activation after success to be rejected")
	}
	if !tr.IsSucceeded("X") || tr.IsFailed("X") || !tr.IsCompleted("X") {
		t.Fatalf("Unexpected state %v", tr.Get("X"))
	}

	tr.Reset("X")
	if !tr.IsActive("X") {
		t.Fatal("Expected reset objective to default to active")
	}
	if !tr.SetState("X", StateFailure) {
		t.Fatal("Expected failure after reset to be accepted")
	}
}

func TestTracker_NonTerminalTransitions(t *testing.T) {
	tr := NewTracker(clock.NewManual(0, 0), nil)

	if tr.SetState("X", StateActive) {
		t.Fatal("Expected no change: active is the default state")
	}
	if !tr.SetState("X", StateLocked) || tr.IsActive("X") {
		t.Fatal("Expected X to lock")
	}
	if !tr.SetState("X", StateActive) || !tr.IsActive("X") {
		t.Fatal("Expected X to unlock")
	}
}

func TestTracker_InvalidStatePanics(t *testing.T) {
	tr := NewTracker(clock.NewManual(0, 0), nil)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown state")
		}
	}()
	tr.SetState("X", State("won"))
}

func TestTracker_InProgressRequiresVisibility(t *testing.T) {
	tr := NewTracker(clock.NewManual(0, 0), nil)

	if tr.InProgress("X") {
		t.Fatal("Expected hidden objective not to be in progress")
	}
	tr.Show("X")
	if !tr.InProgress("X") {
		t.Fatal("Expected shown active objective to be in progress")
	}
	tr.SetState("X", StateSuccess)
	if tr.InProgress("X") {
		t.Fatal("Expected completed objective not to be in progress")
	}
	tr.Hide("X")
	if tr.Get("X").Visible {
		t.Fatal("Expected objective to be hidden")
	}
}

func TestTracker_ResolverPanicsOnUnknownID(t *testing.T) {
	tr := NewTracker(clock.NewManual(0, 0), stubResolver{"Known": true})

	tr.Show("Known")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for id outside the catalog")
		}
	}()
	tr.Get("Unknown")
}

func TestTracker_ObserveChanges(t *testing.T) {
	clk := clock.NewManual(7, 0)
	tr := NewTracker(clk, nil)

	var changes []Change
	tr.Observe(func(c Change) { changes = append(changes, c) })

	tr.Show("X")
	tr.Show("X")
	clk.AdvanceHours(3)
	tr.SetState("X", StateSuccess)
	tr.SetState("X", StateFailure)

	want := []Change{
		{ID: "X", From: StateActive, To: StateActive, Visible: true, GameHour: 7},
		{ID: "X", From: StateActive, To: StateSuccess, Visible: true, GameHour: 10},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Fatalf("Expected %+v, got %+v", want, changes)
	}
}

func TestTracker_SnapshotRestore(t *testing.T) {
	tr := NewTracker(clock.NewManual(0, 0), nil)
	tr.Show("B")
	tr.SetState("B", StateFailure)
	tr.Get("A")

	snap := tr.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded []Objective
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	restored := NewTracker(clock.NewManual(0, 0), nil)
	restored.Restore(decoded)

	if !reflect.DeepEqual(snap, restored.All()) {
		t.Fatalf("Expected %+v, got %+v", snap, restored.All())
	}
	if restored.All()[0].ID != "A" {
		t.Errorf("Expected objectives sorted by id, got %+v", restored.All())
	}
	if !restored.IsFailed("B") {
		t.Error("Expected B to stay failed")
	}
	if restored.SetState("B", StateSuccess) {
		t.Error("Expected a failed objective to stay terminal")
	}
}

func TestState_UnmarshalRejectsUnknown(t *testing.T) {
	var o Objective
	err := json.Unmarshal([]byte(`{"id":"X","visible":true,"state":"won"}`), &o)
	if err == nil {
		t.Fatal("expected error for unknown state")
	}
}
