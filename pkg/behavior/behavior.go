// Package behavior defines the bounded behavior descriptors used to
// place candidates in the archive grid, and the linear discretization
// from descriptor values to bin indices.
package behavior

import (
	"math"

	"github.com/voxpcg/pcgse-go/pkg/core"
)

// Descriptor is a scalar, bounded measurement of a candidate. It is
// used only to compute the cell address, never to rank candidates.
type Descriptor struct {
	Name   string
	Func   func(*core.CandidateSolution) float64
	Bounds [2]float64
}

// Measure evaluates the descriptor, clamped to its declared bounds.
func (d Descriptor) Measure(c *core.CandidateSolution) float64 {
	v := d.Func(c)
	if math.IsNaN(v) {
		return d.Bounds[0]
	}
	return clamp(v, d.Bounds[0], d.Bounds[1])
}

// Bin maps a descriptor value to a bin index in [0, nBins).
func (d Descriptor) Bin(value float64, nBins int) int {
	lo, hi := d.Bounds[0], d.Bounds[1]
	if hi <= lo || nBins <= 1 {
		return 0
	}
	v := clamp(value, lo, hi)
	idx := int(math.Floor((v - lo) / (hi - lo) * float64(nBins)))
	if idx >= nBins {
		idx = nBins - 1
	}
	return idx
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MajorMediumRatio is the ratio between the largest and middle
// bounding-box axes of the phenotype.
func MajorMediumRatio(c *core.CandidateSolution) float64 {
	if c.Phenotype == nil {
		return 0
	}
	axes := c.Phenotype.SortedAxes()
	if axes[1] == 0 {
		return 0
	}
	return float64(axes[0]) / float64(axes[1])
}

// MajorMinimumRatio is the ratio between the largest and smallest
// bounding-box axes of the phenotype.
func MajorMinimumRatio(c *core.CandidateSolution) float64 {
	if c.Phenotype == nil {
		return 0
	}
	axes := c.Phenotype.SortedAxes()
	if axes[2] == 0 {
		return 0
	}
	return float64(axes[0]) / float64(axes[2])
}

// AverageProportions is the mean of the two axis ratios.
func AverageProportions(c *core.CandidateSolution) float64 {
	return (MajorMediumRatio(c) + MajorMinimumRatio(c)) / 2
}

// Symmetry is the phenotype's best mirror-symmetry score, in [0, 1].
func Symmetry(c *core.CandidateSolution) float64 {
	if c.Phenotype == nil {
		return 0
	}
	return c.Phenotype.Symmetry()
}

// DefaultDescriptors returns the standard descriptor set with the
// bounds used for spaceship content.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Name: "Major axis / Medium axis", Func: MajorMediumRatio, Bounds: [2]float64{0, 10}},
		{Name: "Major axis / Smallest axis", Func: MajorMinimumRatio, Bounds: [2]float64{0, 20}},
		{Name: "Average Proportions", Func: AverageProportions, Bounds: [2]float64{0, 20}},
		{Name: "Symmetry", Func: Symmetry, Bounds: [2]float64{0, 1}},
	}
}

// Vector measures every descriptor in order for a candidate.
func Vector(descriptors []Descriptor, c *core.CandidateSolution) []float64 {
	out := make([]float64, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Measure(c)
	}
	return out
}
