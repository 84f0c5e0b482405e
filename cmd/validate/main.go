package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/campaign-engine/pkg/catalog"
	"github.com/jwebster45206/campaign-engine/pkg/state"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <catalog.yaml> [snapshot.json|snapshot.json.zst ...]\n", os.Args[0])
		os.Exit(1)
	}

	v := &CatalogValidator{}
	cat, err := v.validateFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Catalog file is valid!")

	failed := false
	for _, path := range os.Args[2:] {
		if err := v.validateSnapshot(path, cat); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("Snapshot %s is valid!\n", path)
	}
	if failed {
		os.Exit(1)
	}
}

type CatalogValidator struct {
	errors []string
}

func (v *CatalogValidator) validateFile(filename string) (*catalog.Catalog, error) {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	ext := filepath.Ext(baseName)
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("catalog file must have .yaml extension: %s", baseName)
	}
	if !isValidCatalogFilename(strings.TrimSuffix(baseName, ext)) {
		return nil, fmt.Errorf("catalog filename '%s' must be lowercase snake_case (e.g., frontier.yaml, not Frontier-Campaign.yaml)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	// Strict decode first so typos in field names are reported
	var strict catalog.Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&strict); err != nil {
		return nil, fmt.Errorf("file %s failed strict YAML unmarshaling: %w", filename, err)
	}

	cat, err := catalog.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", filename, err)
	}

	v.errors = nil
	v.validateCatalog(cat)
	if len(v.errors) > 0 {
		return nil, fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return cat, nil
}

func (v *CatalogValidator) validateCatalog(c *catalog.Catalog) {
	levels := make(map[int]int)
	for _, o := range c.Objectives {
		if !isValidObjectiveID(o.ID) {
			v.addError(fmt.Sprintf("objective ID '%s' should look like Mission-1 or Mission-1-Task-2", o.ID))
		}
		if strings.TrimSpace(o.Title) == "" {
			v.addError(fmt.Sprintf("objective %s has no title", o.ID))
		}
		if o.Parent != "" {
			if parent, ok := c.Objective(o.Parent); ok && parent.Level != o.Level {
				v.addError(fmt.Sprintf("objective %s is on level %d but its parent %s is on level %d", o.ID, o.Level, parent.ID, parent.Level))
			}
		}
		levels[o.Level]++
	}
	for _, l := range c.Levels {
		if levels[l] == 0 {
			v.addError(fmt.Sprintf("level %d has no objectives", l))
		}
	}
	if c.HumanPlayer() == "" {
		v.addError("no player is marked human")
	}
}

func (v *CatalogValidator) validateSnapshot(path string, c *catalog.Catalog) error {
	fmt.Printf("Validating %s...\n", path)

	data, err := readSnapshot(path)
	if err != nil {
		return err
	}
	snap, err := state.Parse(data)
	if err != nil {
		return fmt.Errorf("file %s: %w", path, err)
	}

	v.errors = nil
	if snap.Catalog != "" && snap.Catalog != c.Name {
		v.addError(fmt.Sprintf("snapshot was saved against catalog '%s', not '%s'", snap.Catalog, c.Name))
	}
	for _, o := range snap.Objectives {
		if !c.HasObjective(o.ID) {
			v.addError(fmt.Sprintf("snapshot references unknown objective '%s'", o.ID))
		}
	}
	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", path, strings.Join(v.errors, "\n"))
	}
	return nil
}

// readSnapshot reads a plain or zstd-compressed snapshot document
func readSnapshot(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		return io.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
	}
	defer dec.Close()
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return data, nil
}

func (v *CatalogValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validObjectiveRegex = regexp.MustCompile(`^[A-Z][A-Za-z]*-[0-9]+(-Task-[0-9]+)?$`)
	validFilenameRegex  = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidObjectiveID(id string) bool {
	return validObjectiveRegex.MatchString(id)
}

func isValidCatalogFilename(name string) bool {
	// Allow 'x.' prefix for experimental catalogs
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
