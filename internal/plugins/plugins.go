// Package plugins holds the read-only table of Alteryx tool short names and
// their fully-qualified plugin paths.
package plugins

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Container is the short name of the tool that groups other tools.
const Container = "ToolContainer"

//go:embed plugins.yaml
var tableYAML []byte

// Table maps short names to fully-qualified plugin paths.
type Table struct {
	byShort map[string]string
}

var defaultTable = mustLoad(tableYAML)

// Load parses a plugin table document.
func Load(data []byte) (*Table, error) {
	var doc struct {
		Plugins map[string]string `yaml:"plugins"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plugin table: %w", err)
	}
	if len(doc.Plugins) == 0 {
		return nil, fmt.Errorf("plugin table is empty")
	}
	return &Table{byShort: doc.Plugins}, nil
}

func mustLoad(data []byte) *Table {
	t, err := Load(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the table shipped with the binary.
func Default() *Table { return defaultTable }

// Resolve returns the full plugin path for a short name. Names that are not
// in the table (including full paths) are returned unchanged.
func (t *Table) Resolve(name string) string {
	if full, ok := t.byShort[name]; ok {
		return full
	}
	return name
}

// Names returns the known short names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.byShort))
	for n := range t.byShort {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve is Default().Resolve.
func Resolve(name string) string { return defaultTable.Resolve(name) }

// ShortName returns the last dotted segment of a plugin path, or "Unknown"
// for an empty path.
func ShortName(plugin string) string {
	if plugin == "" {
		return "Unknown"
	}
	if i := strings.LastIndexByte(plugin, '.'); i >= 0 {
		return plugin[i+1:]
	}
	return plugin
}

// IsContainer reports whether plugin names the container tool.
func IsContainer(plugin string) bool {
	return plugin != "" && ShortName(plugin) == Container
}

// Matches reports whether plugin is the tool named by query, which may be a
// short name or a full path. Comparison is by short-name suffix.
func Matches(plugin, query string) bool {
	if query == "" {
		return true
	}
	return strings.HasSuffix(plugin, ShortName(Resolve(query)))
}
