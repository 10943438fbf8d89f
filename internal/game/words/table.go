// Package words provides the word/category table the imposter game draws its
// secret word from, with YAML loading for custom tables.
package words

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one secret word together with the category it belongs to.
type Entry struct {
	Word     string
	Category string
}

// Table is an ordered, validated list of entries.
type Table struct {
	entries []Entry
}

// NewTable builds a Table from entries and validates it.
//
// Postcondition: Returns a Table or an error if Validate fails.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{entries: append([]Entry(nil), entries...)}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// DefaultTable returns the built-in word table.
func DefaultTable() *Table {
	t, err := NewTable([]Entry{
		{Word: "apple", Category: "fruit"},
		{Word: "banana", Category: "fruit"},
		{Word: "orange", Category: "fruit"},
		{Word: "grape", Category: "fruit"},
		{Word: "mango", Category: "fruit"},
		{Word: "cat", Category: "animal"},
		{Word: "dog", Category: "animal"},
		{Word: "bird", Category: "animal"},
		{Word: "fish", Category: "animal"},
		{Word: "car", Category: "vehicle"},
	})
	if err != nil {
		panic(fmt.Sprintf("building default word table: %v", err))
	}
	return t
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// At returns the entry at index i.
//
// Precondition: 0 <= i < Len().
func (t *Table) At(i int) Entry {
	return t.entries[i]
}

// Entries returns a copy of all entries in table order.
func (t *Table) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Validate checks that the table is non-empty, that every entry has a word and
// a category, and that no word appears twice (case-insensitively).
func (t *Table) Validate() error {
	if len(t.entries) == 0 {
		return errors.New("word table must not be empty")
	}
	var errs []string
	seen := make(map[string]bool, len(t.entries))
	for i, e := range t.entries {
		if strings.TrimSpace(e.Word) == "" {
			errs = append(errs, fmt.Sprintf("entry %d: word must not be empty", i))
			continue
		}
		if strings.TrimSpace(e.Category) == "" {
			errs = append(errs, fmt.Sprintf("entry %d (%s): category must not be empty", i, e.Word))
		}
		key := strings.ToLower(e.Word)
		if seen[key] {
			errs = append(errs, fmt.Sprintf("entry %d: duplicate word %q", i, e.Word))
		}
		seen[key] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid word table: %s", strings.Join(errs, "; "))
	}
	return nil
}

// yamlFile is the top-level YAML structure of a word table file:
//
//	categories:
//	  fruit: [apple, banana]
//	  animal: [cat, dog]
type yamlFile struct {
	Categories yaml.Node `yaml:"categories"`
}

// LoadFromFile reads and validates a YAML word table.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a validated Table or a non-nil error.
func LoadFromFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading word table %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a YAML word table. Category order and
// word order follow the document.
func LoadFromBytes(data []byte) (*Table, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing word table YAML: %w", err)
	}
	if file.Categories.Kind != yaml.MappingNode {
		return nil, errors.New("word table YAML must contain a 'categories' mapping")
	}

	var entries []Entry
	content := file.Categories.Content
	for i := 0; i+1 < len(content); i += 2 {
		category := content[i].Value
		var list []string
		if err := content[i+1].Decode(&list); err != nil {
			return nil, fmt.Errorf("category %q: %w", category, err)
		}
		for _, w := range list {
			entries = append(entries, Entry{Word: strings.TrimSpace(w), Category: category})
		}
	}
	return NewTable(entries)
}
