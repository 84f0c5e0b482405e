package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Frontier(t *testing.T) {
	c := Default()

	if c.Name != "frontier" {
		t.Errorf("Expected name 'frontier', got %q", c.Name)
	}
	if !c.HasObjective("Mission-1") {
		t.Error("Expected Mission-1 in default catalog")
	}
	if c.HasObjective("Mission-99") {
		t.Error("Did not expect Mission-99 in default catalog")
	}
	if c.HumanPlayer() != "Empire" {
		t.Errorf("Expected human player Empire, got %q", c.HumanPlayer())
	}

	task, ok := c.Objective("Mission-5-Task-1")
	if !ok {
		t.Fatal("Expected Mission-5-Task-1 definition")
	}
	if task.Parent != "Mission-5" {
		t.Errorf("Expected parent Mission-5, got %q", task.Parent)
	}

	level2 := c.ObjectivesForLevel(2)
	if len(level2) != 5 {
		t.Fatalf("Expected 5 level 2 objectives, got %d", len(level2))
	}
	if level2[0].ID != "Mission-5" {
		t.Errorf("Expected sorted objectives to start with Mission-5, got %s", level2[0].ID)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "levels: [1]\n",
			wantErr: "name cannot be empty",
		},
		{
			name: "duplicate objective",
			yaml: `name: x
levels: [1]
objectives:
  - {id: A, level: 1}
  - {id: A, level: 1}
`,
			wantErr: "duplicate objective id: A",
		},
		{
			name: "unknown level",
			yaml: `name: x
levels: [1]
objectives:
  - {id: A, level: 3}
`,
			wantErr: "unknown level 3",
		},
		{
			name: "unknown parent",
			yaml: `name: x
levels: [1]
objectives:
  - {id: A, level: 1, parent: B}
`,
			wantErr: "unknown parent B",
		},
		{
			name: "unknown owner",
			yaml: `name: x
levels: [1]
planets:
  - {id: P, owner: Nobody}
`,
			wantErr: "unknown player Nobody",
		},
		{
			name:    "bad yaml",
			yaml:    "name: [",
			wantErr: "catalog yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mini.yaml")
	data := `name: mini
levels: [1]
objectives:
  - {id: Only, title: Only One, level: 1}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !c.HasObjective("Only") {
		t.Error("Expected objective Only")
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	def, err := Load("")
	if err != nil || def.Name != "frontier" {
		t.Fatalf("Expected default catalog for empty path, got %v, %v", def, err)
	}
}
