package models

import "fmt"

// Label is an entry of the fixed label catalog.
type Label struct {
	Name  string `json:"label"`
	Color string `json:"color"`
}

var LabelCatalog = []Label{
	{Name: "bug", Color: "oklch(65.34% 0.1835 23.68)"},
	{Name: "feature", Color: "oklch(72.16% 0.1708 302.88)"},
	{Name: "enhancement", Color: "oklch(71.21% 0.151 249.88)"},
	{Name: "documentation", Color: "oklch(56.81% 0.1585 275.24)"},
	{Name: "security", Color: "oklch(70.29% 0.1267 158.89)"},
	{Name: "performance", Color: "oklch(82.41% 0.1794 91.33)"},
}

func knownLabel(name string) bool {
	for _, l := range LabelCatalog {
		if l.Name == name {
			return true
		}
	}
	return false
}

// NormalizeLabels validates names against the catalog and returns them as a
// set, keeping first-seen order. A nil input yields an empty, non-nil slice.
func NormalizeLabels(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if !knownLabel(name) {
			return nil, fmt.Errorf("unknown label %q", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}
