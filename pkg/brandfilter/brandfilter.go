// Package brandfilter decides whether a brand name returned by the catalog
// matches a caller supplied allow-list.
//
// Names are compared in normalized form (accents folded, lowercase, trimmed,
// whitespace collapsed) after an alias table maps known alternate public names
// onto one canonical form. The default match is bidirectional substring
// containment, which tolerates inconsistent source naming at the cost of
// occasional over-matching. ModeExact trades that tolerance for precision.
package brandfilter

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// Mode selects how a normalized source name is compared to an allow-list entry
type Mode string

const (
	// ModeContains accepts when either side contains the other
	ModeContains Mode = "contains"
	// ModeExact accepts only equal normalized names
	ModeExact Mode = "exact"
)

// ParseMode resolves a mode name; an empty name yields ModeContains
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeContains:
		return ModeContains, nil
	case ModeExact:
		return ModeExact, nil
	default:
		return "", fmt.Errorf("unknown brand match mode %q", s)
	}
}

// DefaultAliases maps normalized alternate names to their canonical form
var DefaultAliases = map[string]string{
	"great wall":        "gwm",
	"great wall motors": "gwm",
	"gm - chevrolet":    "chevrolet",
	"gm":                "chevrolet",
	"vw - volkswagen":   "volkswagen",
	"vw":                "volkswagen",
	"mercedes":          "mercedes-benz",
	"mercedes benz":     "mercedes-benz",
	"caoa chery":        "chery",
	"caoa chery/chery":  "chery",
	"land rover":        "land-rover",
}

// Filter matches brand names against an allow-list. The zero value is not usable; use NewFilter.
type Filter struct {
	entries []string
	aliases map[string]string
	mode    Mode
}

// Option configures a Filter
type Option func(*Filter)

// WithAliases replaces the alias table. Keys are normalized before use.
func WithAliases(aliases map[string]string) Option {
	return func(f *Filter) {
		f.aliases = make(map[string]string, len(aliases))
		for k, v := range aliases {
			f.aliases[normalizers.NormalizeBrand(k)] = normalizers.NormalizeBrand(v)
		}
	}
}

// WithoutAliases disables alias resolution so only normalization applies
func WithoutAliases() Option {
	return func(f *Filter) {
		f.aliases = nil
	}
}

// WithMode sets the comparison mode
func WithMode(mode Mode) Option {
	return func(f *Filter) {
		f.mode = mode
	}
}

// NewFilter builds a filter for allow. Blank entries are ignored; an empty
// allow-list accepts every brand.
func NewFilter(allow []string, opts ...Option) *Filter {
	f := &Filter{mode: ModeContains}
	WithAliases(DefaultAliases)(f)
	for _, opt := range opts {
		opt(f)
	}

	for _, entry := range allow {
		canonical := f.Canonical(entry)
		if canonical == "" {
			continue
		}
		f.entries = append(f.entries, canonical)
	}
	return f
}

// Empty reports whether the filter accepts everything
func (f *Filter) Empty() bool {
	return f == nil || len(f.entries) == 0
}

// Canonical returns the normalized and aliased form of name
func (f *Filter) Canonical(name string) string {
	n := normalizers.NormalizeBrand(name)
	if alias, ok := f.aliases[n]; ok {
		return alias
	}
	return n
}

// Matches reports whether name is accepted by the allow-list
func (f *Filter) Matches(name string) bool {
	if f.Empty() {
		return true
	}

	source := f.Canonical(name)
	if source == "" {
		return false
	}

	for _, entry := range f.entries {
		switch f.mode {
		case ModeExact:
			if source == entry {
				return true
			}
		default:
			if strings.Contains(source, entry) || strings.Contains(entry, source) {
				return true
			}
		}
	}
	return false
}

// Apply returns the brands accepted by the allow-list, preserving order
func (f *Filter) Apply(brands []models.Brand) []models.Brand {
	if f.Empty() {
		return brands
	}

	return ectolinq.Filter(brands, func(b models.Brand) bool {
		return f.Matches(b.Name)
	})
}
