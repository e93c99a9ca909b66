package state

import (
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Location is one discovered place on the world map.
type Location struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Visited     bool   `json:"visited"`
}

// WorldMap accumulates discovered locations. Locations are append-only
// and the visited flag is monotonic: once set it is never cleared.
type WorldMap struct {
	Locations map[string]*Location `json:"locations"`
}

// NewWorldMap returns an empty map.
func NewWorldMap() *WorldMap {
	return &WorldMap{Locations: make(map[string]*Location)}
}

// AddLocation records a newly discovered location. Existing entries are
// never overwritten.
func (m *WorldMap) AddLocation(loc Location) {
	if loc.Name == "" {
		return
	}
	if m.Locations == nil {
		m.Locations = make(map[string]*Location)
	}
	if _, exists := m.Locations[loc.Name]; exists {
		return
	}
	added := loc
	m.Locations[loc.Name] = &added
}

// MarkVisited flags a location as visited, creating it if the oracle
// names a place it never formally discovered.
func (m *WorldMap) MarkVisited(name string) {
	if name == "" {
		return
	}
	if m.Locations == nil {
		m.Locations = make(map[string]*Location)
	}
	if loc, ok := m.Locations[name]; ok {
		loc.Visited = true
		return
	}
	m.Locations[name] = &Location{Name: name, Visited: true}
}

// Names returns all location names sorted for stable display.
func (m *WorldMap) Names() []string {
	names := make([]string, 0, len(m.Locations))
	for name := range m.Locations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var titleCaser = cases.Title(language.English)

// DisplayName renders a location name in title case for UI listings.
func DisplayName(name string) string {
	return titleCaser.String(name)
}
