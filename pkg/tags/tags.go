// Package tags holds the catalog of puzzle topics offered on the home screen.
package tags

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DefaultSampleSize is how many tags are shown on a fresh field.
const DefaultSampleSize = 25

// Tag is one selectable topic. Weight in [0,1] drives the bubble's base size.
type Tag struct {
	Text   string  `yaml:"text" json:"text"`
	Weight float64 `yaml:"weight" json:"weight"`
}

type catalogFile struct {
	Tags []Tag `yaml:"tags"`
}

// Default returns the embedded catalog.
func Default() []Tag {
	catalog, err := Load(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded tag catalog is invalid: %v", err))
	}
	return catalog
}

// LoadFile reads a catalog from a YAML file on disk.
func LoadFile(path string) ([]Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tag catalog: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Load(f)
}

// Load decodes and validates a YAML catalog.
func Load(r io.Reader) ([]Tag, error) {
	var cf catalogFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cf); err != nil {
		return nil, fmt.Errorf("failed to decode tag catalog: %w", err)
	}
	if err := Validate(cf.Tags); err != nil {
		return nil, err
	}
	return cf.Tags, nil
}

// Validate checks every tag and reports all problems at once.
func Validate(catalog []Tag) error {
	if len(catalog) == 0 {
		return fmt.Errorf("tag catalog is empty")
	}

	var problems []string
	seen := make(map[string]bool, len(catalog))
	for i, t := range catalog {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			problems = append(problems, fmt.Sprintf("tag %d: text is empty", i))
			continue
		}
		if t.Weight < 0 || t.Weight > 1 {
			problems = append(problems, fmt.Sprintf("tag %q: weight %.2f outside [0,1]", text, t.Weight))
		}
		if seen[text] {
			problems = append(problems, fmt.Sprintf("tag %q: duplicate", text))
		}
		seen[text] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid tag catalog:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// Sample shuffles a copy of the catalog and returns the first n entries.
func Sample(rng *rand.Rand, catalog []Tag, n int) []Tag {
	shuffled := make([]Tag, len(catalog))
	copy(shuffled, catalog)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n < 0 {
		n = 0
	}
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
