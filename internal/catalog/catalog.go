package catalog

import (
	"fmt"
	"sort"
	"strings"
)

type Severity int

const (
	SeverityInformational Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInformational:
		return "informational"
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Label pairs a user-visible label with the meta placeholder it is resolved
// from, e.g. {"Requested URL", "%URL%"}. Order is presentation order.
type Label struct {
	Text        string
	Placeholder string
}

// Definition describes one alert type. Message templates carry %Placeholder%
// tokens resolved against an occurrence's meta at render time.
type Definition struct {
	ID              int
	Severity        Severity
	Description     string
	MessageTemplate string
	MetadataLabels  []Label
	LinkLabels      []Label
	ObjectTag       string
	ActionTag       string
}

// Catalog is the immutable alert registry. Providers contribute definitions
// at startup; after that it is read-only lookup.
type Catalog struct {
	defs      map[int]Definition
	providers map[int]string
}

func New() *Catalog {
	return &Catalog{
		defs:      map[int]Definition{},
		providers: map[int]string{},
	}
}

// Register contributes a provider's definitions when its predicate holds.
// An id collision, either with an already registered provider or within the
// incoming set, rejects the whole provider and leaves the catalog untouched.
// Downstream severity and notification logic depends on id uniqueness, so a
// collision is a hard failure, never a silent overwrite.
func (c *Catalog) Register(providerID string, when func() bool, defs []Definition) error {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return fmt.Errorf("catalog: empty provider id")
	}
	if when != nil && !when() {
		return nil
	}

	seen := map[int]bool{}
	for _, d := range defs {
		if d.ID <= 0 {
			return fmt.Errorf("catalog: provider %q: invalid alert id %d", providerID, d.ID)
		}
		if seen[d.ID] {
			return fmt.Errorf("catalog: provider %q: duplicate alert id %d within provider", providerID, d.ID)
		}
		if owner, ok := c.providers[d.ID]; ok {
			return fmt.Errorf("catalog: provider %q: alert id %d already registered by %q", providerID, d.ID, owner)
		}
		seen[d.ID] = true
	}

	for _, d := range defs {
		c.defs[d.ID] = d
		c.providers[d.ID] = providerID
	}
	return nil
}

func (c *Catalog) Get(id int) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	d, ok := c.defs[id]
	return d, ok
}

// GetAll returns a copy of the registry keyed by alert id.
func (c *Catalog) GetAll() map[int]Definition {
	out := make(map[int]Definition, len(c.defs))
	for id, d := range c.defs {
		out[id] = d
	}
	return out
}

// IDsByObjectTag returns the sorted alert ids carrying the given object tag.
// The digest compiler derives its "system & WordPress" set this way instead
// of hardcoding ids.
func (c *Catalog) IDsByObjectTag(tags ...string) []int {
	want := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			want[t] = true
		}
	}
	var out []int
	for id, d := range c.defs {
		if want[d.ObjectTag] {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// Validate enumerates the catalog and asserts internal consistency. Register
// already refuses collisions; this is the startup pass that catches a catalog
// assembled from several sources drifting out of shape.
func (c *Catalog) Validate() error {
	for id, d := range c.defs {
		if d.ID != id {
			return fmt.Errorf("catalog: definition keyed %d carries id %d", id, d.ID)
		}
		if strings.TrimSpace(d.MessageTemplate) == "" {
			return fmt.Errorf("catalog: alert %d has empty message template", id)
		}
	}
	return nil
}

func (c *Catalog) Len() int { return len(c.defs) }
