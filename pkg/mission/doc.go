package mission

import (
	"fmt"
	"sort"
	"strconv"
)

// Doc is the persistence document of one mission unit: named string values.
// Absent keys read as the zero value so an unsaved unit loads as "not started".
type Doc map[string]string

func (d Doc) Set(key, value string) { d[key] = value }

func (d Doc) Get(key string) (string, bool) {
	v, ok := d[key]
	return v, ok
}

// String returns the value or "" when absent
func (d Doc) String(key string) string { return d[key] }

func (d Doc) SetBool(key string, v bool) { d[key] = strconv.FormatBool(v) }

// Bool returns false for an absent key and panics on a malformed value
func (d Doc) Bool(key string) bool {
	raw, ok := d[key]
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		panic(fmt.Sprintf("mission doc: key %q: %v", key, err))
	}
	return v
}

func (d Doc) SetInt(key string, v int) { d[key] = strconv.Itoa(v) }

// Int returns 0 for an absent key and panics on a malformed value
func (d Doc) Int(key string) int {
	raw, ok := d[key]
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		panic(fmt.Sprintf("mission doc: key %q: %v", key, err))
	}
	return v
}

// Keys returns the document keys sorted
func (d Doc) Keys() []string {
	out := make([]string, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Enum is an exhaustive two-way mapping between a Go value and its stored name.
// Decoding an unknown name panics rather than falling back to a default.
type Enum[T comparable] struct {
	zero   T
	names  map[T]string
	values map[string]T
}

// NewEnum builds a codec; zero is what an absent key decodes to and must be in names
func NewEnum[T comparable](zero T, names map[T]string) *Enum[T] {
	e := &Enum[T]{zero: zero, names: names, values: make(map[string]T, len(names))}
	for v, name := range names {
		if _, dup := e.values[name]; dup {
			panic(fmt.Sprintf("mission enum: duplicate name %q", name))
		}
		e.values[name] = v
	}
	if _, ok := names[zero]; !ok {
		panic(fmt.Sprintf("mission enum: zero value %#v has no name", zero))
	}
	return e
}

// Name returns the stored name of v
func (e *Enum[T]) Name(v T) string {
	name, ok := e.names[v]
	if !ok {
		panic(fmt.Sprintf("mission enum: value %#v has no name", v))
	}
	return name
}

// Parse maps a stored name back to its value
func (e *Enum[T]) Parse(name string) T {
	v, ok := e.values[name]
	if !ok {
		panic(fmt.Sprintf("mission enum: unknown value %q", name))
	}
	return v
}

// Store writes v under key
func (e *Enum[T]) Store(d Doc, key string, v T) {
	d.Set(key, e.Name(v))
}

// Fetch reads key, returning the zero value when absent
func (e *Enum[T]) Fetch(d Doc, key string) T {
	raw, ok := d.Get(key)
	if !ok {
		return e.zero
	}
	return e.Parse(raw)
}

// Stage is the common progress shape of a mission unit.
type Stage int

const (
	StageNone Stage = iota
	StageWait
	StageIntro
	StageRunning
	StageDone
)

// Stages is the persistence codec for Stage
var Stages = NewEnum(StageNone, map[Stage]string{
	StageNone:    "none",
	StageWait:    "wait",
	StageIntro:   "intro",
	StageRunning: "running",
	StageDone:    "done",
})

func (s Stage) String() string {
	if name, ok := Stages.names[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}
