package mission

import (
	"reflect"
	"testing"
)

func mustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("Expected a panic")
		}
	}()
	fn()
}

func TestDoc_AbsentKeysDefault(t *testing.T) {
	d := Doc{}
	if d.Bool("once") {
		t.Error("Expected absent bool to be false")
	}
	if d.Int("count") != 0 {
		t.Errorf("Expected absent int to be 0, got %d", d.Int("count"))
	}
	if d.String("name") != "" {
		t.Errorf("Expected absent string to be empty, got %q", d.String("name"))
	}
	if got := Stages.Fetch(d, "stage"); got != StageNone {
		t.Errorf("Expected StageNone, got %s", got)
	}
}

func TestDoc_TypedValues(t *testing.T) {
	d := Doc{}
	d.SetBool("once", true)
	d.SetInt("count", 42)
	Stages.Store(d, "stage", StageRunning)

	if !d.Bool("once") {
		t.Error("Expected once to be true")
	}
	if d.Int("count") != 42 {
		t.Errorf("Expected count 42, got %d", d.Int("count"))
	}
	if d["stage"] != "running" {
		t.Errorf("Expected stored stage name running, got %q", d["stage"])
	}
	if got := Stages.Fetch(d, "stage"); got != StageRunning {
		t.Errorf("Expected StageRunning, got %s", got)
	}
	if keys := d.Keys(); !reflect.DeepEqual(keys, []string{"count", "once", "stage"}) {
		t.Errorf("Expected sorted keys, got %v", keys)
	}
}

func TestDoc_MalformedValuesPanic(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{name: "bool", fn: func() { Doc{"k": "maybe"}.Bool("k") }},
		{name: "int", fn: func() { Doc{"k": "many"}.Int("k") }},
		{name: "stage", fn: func() { Stages.Fetch(Doc{"stage": "RUNNING"}, "stage") }},
		{name: "unnamed stage", fn: func() { Stages.Store(Doc{}, "stage", Stage(42)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustPanic(t, tt.fn)
		})
	}
}

func TestNewEnum_RejectsBadTables(t *testing.T) {
	mustPanic(t, func() { NewEnum(1, map[int]string{1: "a", 2: "a"}) })
	mustPanic(t, func() { NewEnum(0, map[int]string{1: "a"}) })
	if s := Stage(9).String(); s != "stage(9)" {
		t.Errorf("Expected stage(9), got %q", s)
	}
}
