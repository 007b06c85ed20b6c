package gpcc

import (
	"math"

	"github.com/golang/geo/r3"
)

// PointCloud holds decoded positions and their attributes, indexed by
// point id. Attribute slices are nil until the attribute is decoded.
type PointCloud struct {
	Positions    [][3]int32
	Colors       [][3]uint16
	Reflectances []uint16
}

// NewPointCloud returns a cloud with room for n positions.
func NewPointCloud(n int) *PointCloud {
	return &PointCloud{Positions: make([][3]int32, n)}
}

// Size returns the number of points in the cloud.
func (pc *PointCloud) Size() int {
	return len(pc.Positions)
}

// AddColors allocates the colour attribute.
func (pc *PointCloud) AddColors() {
	if len(pc.Colors) != len(pc.Positions) {
		pc.Colors = make([][3]uint16, len(pc.Positions))
	}
}

// AddReflectances allocates the reflectance attribute.
func (pc *PointCloud) AddReflectances() {
	if len(pc.Reflectances) != len(pc.Positions) {
		pc.Reflectances = make([]uint16, len(pc.Positions))
	}
}

// HasColors reports whether colours are present.
func (pc *PointCloud) HasColors() bool {
	return len(pc.Colors) == len(pc.Positions) && len(pc.Positions) > 0
}

// HasReflectances reports whether reflectances are present.
func (pc *PointCloud) HasReflectances() bool {
	return len(pc.Reflectances) == len(pc.Positions) && len(pc.Positions) > 0
}

// MetaData summarizes a cloud.
type MetaData struct {
	Min, Max       r3.Vector
	HasColor       bool
	HasReflectance bool
}

// MetaData returns the bounding box and attribute presence of the cloud.
func (pc *PointCloud) MetaData() MetaData {
	meta := MetaData{
		Min:            r3.Vector{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64},
		Max:            r3.Vector{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64},
		HasColor:       pc.HasColors(),
		HasReflectance: pc.HasReflectances(),
	}
	for _, p := range pc.Positions {
		v := r3.Vector{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
		meta.Min = r3.Vector{X: math.Min(meta.Min.X, v.X), Y: math.Min(meta.Min.Y, v.Y), Z: math.Min(meta.Min.Z, v.Z)}
		meta.Max = r3.Vector{X: math.Max(meta.Max.X, v.X), Y: math.Max(meta.Max.Y, v.Y), Z: math.Max(meta.Max.Z, v.Z)}
	}
	return meta
}

// Append concatenates other onto pc. Attributes present in only one of
// the clouds are dropped.
func (pc *PointCloud) Append(other *PointCloud) {
	if other.Size() == 0 {
		return
	}
	hasColors := pc.HasColors() && other.HasColors()
	hasRefl := pc.HasReflectances() && other.HasReflectances()
	if pc.Size() == 0 {
		hasColors = other.HasColors()
		hasRefl = other.HasReflectances()
	}
	pc.Positions = append(pc.Positions, other.Positions...)
	if hasColors {
		pc.Colors = append(pc.Colors, other.Colors...)
	} else {
		pc.Colors = nil
	}
	if hasRefl {
		pc.Reflectances = append(pc.Reflectances, other.Reflectances...)
	} else {
		pc.Reflectances = nil
	}
}
