// Package fitness holds the registered fitness functions, their
// weighted aggregation, and the evaluator that scores candidates.
package fitness

import (
	"math"

	"github.com/voxpcg/pcgse-go/pkg/core"
)

// Fitness is a named, bounded, pure fitness function. Functions are
// responsible for honoring their declared bounds; the evaluator does
// not renormalize.
type Fitness struct {
	Name   string
	Func   func(*core.CandidateSolution) float64
	Bounds [2]float64
	Weight float64
}

// FunctionalBlockKinds are the block types that make a ship operable
// rather than a hollow hull.
var FunctionalBlockKinds = []string{
	"cockpit",
	"thruster",
	"reactor",
	"gyro",
	"container",
	"light",
}

// BoxFilling scores how densely the phenotype fills its own bounding
// box, in [0, 1].
func BoxFilling(c *core.CandidateSolution) float64 {
	if c.Phenotype == nil {
		return 0
	}
	dx, dy, dz := c.Phenotype.BoundingBox()
	volume := dx * dy * dz
	if volume == 0 {
		return 0
	}
	return float64(c.Phenotype.OccupiedCount()) / float64(volume)
}

// FunctionalBlocks scores the fraction of functional block kinds
// present in the phenotype, in [0, 1].
func FunctionalBlocks(c *core.CandidateSolution) float64 {
	if c.Phenotype == nil {
		return 0
	}
	present := 0
	for _, kind := range FunctionalBlockKinds {
		if c.Phenotype.CountKind(kind) > 0 {
			present++
		}
	}
	return float64(present) / float64(len(FunctionalBlockKinds))
}

// ratioCloseness maps an axis ratio to [0, 1], peaking at the target
// proportion and decaying linearly to 0.
func ratioCloseness(ratio, target float64) float64 {
	if target == 0 {
		return 0
	}
	score := 1 - math.Abs(ratio-target)/target
	if score < 0 {
		return 0
	}
	return score
}

// MajorMediumProportions rewards phenotypes whose major/medium axis
// ratio sits near an elongated hull proportion.
func MajorMediumProportions(c *core.CandidateSolution) float64 {
	if c.Phenotype == nil {
		return 0
	}
	axes := c.Phenotype.SortedAxes()
	if axes[1] == 0 {
		return 0
	}
	return ratioCloseness(float64(axes[0])/float64(axes[1]), 2)
}

// MajorMinimumProportions rewards phenotypes whose major/smallest axis
// ratio sits near an elongated hull proportion.
func MajorMinimumProportions(c *core.CandidateSolution) float64 {
	if c.Phenotype == nil {
		return 0
	}
	axes := c.Phenotype.SortedAxes()
	if axes[2] == 0 {
		return 0
	}
	return ratioCloseness(float64(axes[0])/float64(axes[2]), 3)
}

// DefaultFitnesses returns the standard feasible-fitness set, all
// bounded to [0, 1] with weight 1.
func DefaultFitnesses() []Fitness {
	return []Fitness{
		{Name: "box-filling", Func: BoxFilling, Bounds: [2]float64{0, 1}, Weight: 1},
		{Name: "functional-blocks", Func: FunctionalBlocks, Bounds: [2]float64{0, 1}, Weight: 1},
		{Name: "major-medium-proportions", Func: MajorMediumProportions, Bounds: [2]float64{0, 1}, Weight: 1},
		{Name: "major-minimum-proportions", Func: MajorMinimumProportions, Bounds: [2]float64{0, 1}, Weight: 1},
	}
}

// ApplyWeights overrides fitness weights by name. Unlisted functions
// keep their current weight.
func ApplyWeights(fitnesses []Fitness, weights map[string]float64) []Fitness {
	out := make([]Fitness, len(fitnesses))
	copy(out, fitnesses)
	for i := range out {
		if w, ok := weights[out[i].Name]; ok {
			out[i].Weight = w
		}
	}
	return out
}

// Aggregate reduces a fitness vector to the weighted sum used for
// archive ranking.
func Aggregate(fitnesses []Fitness, vector []float64) float64 {
	total := 0.0
	for i, f := range fitnesses {
		if i >= len(vector) {
			break
		}
		total += f.Weight * vector[i]
	}
	return total
}

// MaxAggregate is the upper bound of the aggregate fitness: the sum of
// each function's weighted upper bound.
func MaxAggregate(fitnesses []Fitness) float64 {
	total := 0.0
	for _, f := range fitnesses {
		total += f.Weight * f.Bounds[1]
	}
	return total
}
