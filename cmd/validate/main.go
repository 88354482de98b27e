package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jwebster45206/turtle-soup/pkg/puzzle"
	"github.com/jwebster45206/turtle-soup/pkg/state"
	"github.com/jwebster45206/turtle-soup/pkg/tags"
)

// maxLabelRunes is roughly what fits inside an unselected bubble.
const maxLabelRunes = 14

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <catalog.yaml | puzzle.json>...\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		v := &Validator{}
		if err := v.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		for _, w := range v.warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		fmt.Printf("%s is valid!\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

// Validator checks tag catalogs and saved puzzle documents.
type Validator struct {
	errors   []string
	warnings []string
}

func (v *Validator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		return v.validateCatalog(filename)
	case ".json":
		return v.validatePuzzle(filename)
	default:
		return fmt.Errorf("unsupported file type %q: expected a .yaml tag catalog or a .json puzzle", ext)
	}
}

func (v *Validator) validateCatalog(filename string) error {
	catalog, err := tags.LoadFile(filename)
	if err != nil {
		return fmt.Errorf("file %s: %w", filename, err)
	}

	if len(catalog) < tags.DefaultSampleSize {
		v.addWarning(fmt.Sprintf("only %d tags; the home field shows %d at a time", len(catalog), tags.DefaultSampleSize))
	}
	if len(catalog) < state.MaxTags {
		v.addError(fmt.Sprintf("a catalog needs at least %d tags, got %d", state.MaxTags, len(catalog)))
	}
	for _, t := range catalog {
		if utf8.RuneCountInString(t.Text) > maxLabelRunes {
			v.addWarning(fmt.Sprintf("tag %q is long and will be truncated in its bubble", t.Text))
		}
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	fmt.Printf("  %d tags\n", len(catalog))
	return nil
}

// validatePuzzle checks a generated document the same way the engine does
// before a game goes live.
func (v *Validator) validatePuzzle(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	p, err := puzzle.Parse(string(data))
	if err != nil {
		return fmt.Errorf("file %s: %w", filename, err)
	}

	seen := make(map[string]bool, len(p.KeyPoints))
	for _, kp := range p.KeyPoints {
		if seen[kp] {
			v.addWarning(fmt.Sprintf("key point %q is listed twice and can only be found once", kp))
		}
		seen[kp] = true
	}
	fmt.Printf("  %s %s: %d key points\n", p.Emoji, p.Title, len(p.KeyPoints))
	return nil
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func (v *Validator) addWarning(msg string) {
	v.warnings = append(v.warnings, msg)
}
