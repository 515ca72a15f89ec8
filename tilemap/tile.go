// Package tilemap provides the tile grid and its seeded procedural generator.
package tilemap

import (
	"errors"
	"fmt"
)

// TileType identifies the terrain in one grid cell.
type TileType uint8

const (
	Grass TileType = iota
	Dirt
	Water
	Stone
	Sand
	NumTileTypes // sentinel; keep last
)

// Properties holds the static metadata for a tile type.
type Properties struct {
	Name              string
	Walkable          bool
	AllowsProjectiles bool
}

// properties is indexed by TileType and never mutated.
var properties = [NumTileTypes]Properties{
	Grass: {Name: "grass", Walkable: true, AllowsProjectiles: true},
	Dirt:  {Name: "dirt", Walkable: true, AllowsProjectiles: true},
	Water: {Name: "water", Walkable: false, AllowsProjectiles: true},
	Stone: {Name: "stone", Walkable: false, AllowsProjectiles: false},
	Sand:  {Name: "sand", Walkable: true, AllowsProjectiles: true},
}

// ErrUnknownTile is returned for tile names or values outside the enum.
var ErrUnknownTile = errors.New("unknown tile type")

// Valid reports whether t is a declared tile type.
func (t TileType) Valid() bool {
	return t < NumTileTypes
}

// Props returns the static metadata for t. Invalid types report as solid.
func (t TileType) Props() Properties {
	if !t.Valid() {
		return Properties{Name: "invalid"}
	}
	return properties[t]
}

// Walkable reports whether moving bodies may pass over t.
func (t TileType) Walkable() bool {
	return t.Props().Walkable
}

// AllowsProjectiles reports whether projectiles pass over t.
func (t TileType) AllowsProjectiles() bool {
	return t.Props().AllowsProjectiles
}

func (t TileType) String() string {
	return t.Props().Name
}

// Glyph returns a single character used by text dumps of a grid.
func (t TileType) Glyph() byte {
	switch t {
	case Grass:
		return '.'
	case Dirt:
		return ':'
	case Water:
		return '~'
	case Stone:
		return '#'
	case Sand:
		return ','
	}
	return '?'
}

// ParseTileType resolves a tile name as used in config files.
func ParseTileType(name string) (TileType, error) {
	for i := range properties {
		if properties[i].Name == name {
			return TileType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTile, name)
}
