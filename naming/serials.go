package naming

import (
	"sort"
	"strings"
)

// defaultSerialPrefixes maps the leading characters of GoPro serial numbers
// to the camera model that issues them.
var defaultSerialPrefixes = map[string]string{
	"C3131": "HERO4 Black",
	"C3141": "HERO4 Silver",
	"C3151": "HERO Session",
	"C3161": "HERO5 Black",
	"C3171": "HERO5 Session",
	"C3212": "Fusion",
	"C3221": "HERO6 Black",
	"C3261": "HERO7 Black",
	"C3271": "HERO7 Silver",
	"C3281": "HERO7 White",
	"C3311": "HERO8 Black",
	"C3321": "MAX",
	"C3441": "HERO9 Black",
	"C3501": "HERO10 Black",
	"C3531": "HERO11 Black",
	"C3541": "HERO11 Black Mini",
	"C3581": "HERO12 Black",
}

// SerialTable is a set of known serial prefixes.
type SerialTable struct {
	prefixes map[string]string
	// ordered longest first so the most specific prefix wins
	ordered []string
}

// DefaultSerials returns a table seeded with the built-in prefixes.
func DefaultSerials() *SerialTable {
	t := &SerialTable{prefixes: make(map[string]string, len(defaultSerialPrefixes))}
	for p, m := range defaultSerialPrefixes {
		t.Add(p, m)
	}
	return t
}

// Add registers prefix for model, replacing an existing entry.
func (t *SerialTable) Add(prefix, model string) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return
	}
	if t.prefixes == nil {
		t.prefixes = make(map[string]string)
	}
	if _, exists := t.prefixes[prefix]; !exists {
		t.ordered = append(t.ordered, prefix)
		sort.Slice(t.ordered, func(i, j int) bool {
			if len(t.ordered[i]) != len(t.ordered[j]) {
				return len(t.ordered[i]) > len(t.ordered[j])
			}
			return t.ordered[i] < t.ordered[j]
		})
	}
	t.prefixes[prefix] = model
}

// Lookup returns the model for the longest known prefix of s.
func (t *SerialTable) Lookup(s string) (string, bool) {
	s = strings.ToUpper(s)
	for _, p := range t.ordered {
		if strings.HasPrefix(s, p) {
			return t.prefixes[p], true
		}
	}
	return "", false
}

// Len returns the number of known prefixes.
func (t *SerialTable) Len() int { return len(t.prefixes) }
