package game

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
)

//go:embed maps/*.json
var mapFiles embed.FS

// MapDef is a named map record: logical size, terrain polygons per visual
// variant, and spawn points in roster order.
type MapDef struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Size        Size                 `json:"size"`
	Terrain     map[string][][]Point `json:"terrain"`
	SpawnPoints []Point              `json:"spawnPoints"`
}

// ParseMap decodes and validates a map record.
func ParseMap(data []byte) (*MapDef, error) {
	var m MapDef
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("map has no id")
	}
	if m.Size.Width <= 0 || m.Size.Height <= 0 {
		return nil, fmt.Errorf("map %s: invalid size %vx%v", m.ID, m.Size.Width, m.Size.Height)
	}
	if len(m.Terrain) == 0 {
		return nil, fmt.Errorf("map %s: no terrain variants", m.ID)
	}
	for variant, polys := range m.Terrain {
		for i, poly := range polys {
			if len(poly) < 3 {
				return nil, fmt.Errorf("map %s/%s: polygon %d has %d points", m.ID, variant, i, len(poly))
			}
		}
	}
	return &m, nil
}

// LoadMap returns a built-in map by id.
func LoadMap(id string) (*MapDef, error) {
	data, err := mapFiles.ReadFile(path.Join("maps", id+".json"))
	if err != nil {
		return nil, fmt.Errorf("map %q: %w", id, err)
	}
	return ParseMap(data)
}

// MapIDs lists the built-in maps, sorted.
func MapIDs() []string {
	entries, err := mapFiles.ReadDir("maps")
	if err != nil {
		return nil
	}
	var ids []string
	for _, e := range entries {
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	slices.Sort(ids)
	return ids
}

// Variants lists the terrain variants of the map, sorted.
func (m *MapDef) Variants() []string {
	var vs []string
	for v := range m.Terrain {
		vs = append(vs, v)
	}
	slices.Sort(vs)
	return vs
}

// Polygons returns the closed terrain parts of a variant.
func (m *MapDef) Polygons(variant string) ([]Path, error) {
	polys, ok := m.Terrain[variant]
	if !ok {
		return nil, fmt.Errorf("map %s variant %q: %w", m.ID, variant, ErrUnknownVariant)
	}
	out := make([]Path, len(polys))
	for i, p := range polys {
		out[i] = Path{Points: slices.Clone(p), Closed: true}
	}
	return out, nil
}

// NewTerrain renders the given variant.
func (m *MapDef) NewTerrain(variant string, cfg Config) (*Terrain, error) {
	polys, err := m.Polygons(variant)
	if err != nil {
		return nil, err
	}
	return NewTerrain(int(m.Size.Width), int(m.Size.Height), polys, cfg), nil
}

// Spawn returns the spawn point for roster slot i, wrapping when there are
// more entities than points.
func (m *MapDef) Spawn(i int) Point {
	if len(m.SpawnPoints) == 0 {
		return Point{X: m.Size.Width / 2}
	}
	return m.SpawnPoints[i%len(m.SpawnPoints)]
}
