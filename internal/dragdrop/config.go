// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package dragdrop

import (
	"math"
	"time"
)

// Default geometry, in the same units as the row coordinates the shell
// reports (pixels in a browser, scaled cells in a terminal).
const (
	DefaultProximityBand = 50.0
	DefaultNestThreshold = 100.0
	DefaultStartDelay    = 150 * time.Millisecond
)

// Config holds the drag geometry. The zero value is not useful; start from
// DefaultConfig and override fields.
type Config struct {
	// ProximityBand is how far a row may sit horizontally from the
	// placeholder and still be a parent candidate.
	ProximityBand float64 `yaml:"proximity_band"`

	// NestThreshold is how far right of the start position the pointer must
	// travel before the drop nests the item instead of reordering it.
	NestThreshold float64 `yaml:"nest_threshold"`

	// StartDelay is how long a press must be held before it turns into a drag.
	StartDelay time.Duration `yaml:"start_delay"`
}

// DefaultConfig returns the stock geometry.
func DefaultConfig() Config {
	return Config{
		ProximityBand: DefaultProximityBand,
		NestThreshold: DefaultNestThreshold,
		StartDelay:    DefaultStartDelay,
	}
}

// WithDefaults fills zero or negative fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ProximityBand <= 0 {
		c.ProximityBand = d.ProximityBand
	}
	if c.NestThreshold <= 0 {
		c.NestThreshold = d.NestThreshold
	}
	if c.StartDelay < 0 {
		c.StartDelay = d.StartDelay
	}
	return c
}

// ShouldStart reports whether a press that began at pressedAt has been held
// long enough at now to start a drag.
func (c Config) ShouldStart(pressedAt, now time.Time) bool {
	return now.Sub(pressedAt) >= c.StartDelay
}

// Point is a pointer or row position.
type Point struct {
	X, Y float64
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Row is the geometry of one visible tree row at drag start. X is the
// row's indent offset, Y its vertical position (smaller is higher).
type Row struct {
	TermID int64
	X, Y   float64
}

// Pos returns the row's position as a Point.
func (r Row) Pos() Point {
	return Point{X: r.X, Y: r.Y}
}
