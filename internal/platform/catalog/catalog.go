// Package catalog holds the static domain to category table consulted after
// the user's own overrides.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Entry struct {
	Domain   string
	Category string
}

type Table struct {
	entries map[string]string
}

func Default() (Table, error) {
	t := Table{entries: map[string]string{}}
	if err := t.merge(defaultsYAML); err != nil {
		return Table{}, fmt.Errorf("decode built-in catalog: %w", err)
	}
	return t, nil
}

// Load returns the built-in table overlaid with the file at path, if any.
func Load(path string) (Table, error) {
	t, err := Default()
	if err != nil {
		return Table{}, err
	}
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read catalog: %w", err)
	}
	if err := t.merge(raw); err != nil {
		return Table{}, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return t, nil
}

func (t Table) merge(raw []byte) error {
	grouped := map[string][]string{}
	if err := yaml.Unmarshal(raw, &grouped); err != nil {
		return err
	}
	for category, domains := range grouped {
		category = strings.TrimSpace(category)
		if category == "" {
			return fmt.Errorf("empty category name")
		}
		for _, domain := range domains {
			domain = strings.ToLower(strings.TrimSpace(domain))
			if domain == "" {
				continue
			}
			t.entries[domain] = category
		}
	}
	return nil
}

func (t Table) Lookup(domain string) (string, bool) {
	category, ok := t.entries[domain]
	return category, ok
}

func (t Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for domain, category := range t.entries {
		out = append(out, Entry{Domain: domain, Category: category})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

func (t Table) Len() int {
	return len(t.entries)
}
