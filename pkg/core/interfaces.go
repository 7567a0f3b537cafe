package core

import "context"

// Expander turns a genotype string into a new derivation string by
// applying the grammar's production rules. Implementations are external
// collaborators and must be deterministic given the same rule set and
// random seed state.
type Expander interface {
	Expand(ctx context.Context, genotype string) (string, error)
}

// StructureBuilder materializes a derivation string into a voxel
// content grid and applies the hull/smoothing post-process. Both calls
// are synchronous and bounded.
type StructureBuilder interface {
	Materialize(ctx context.Context, derivation string) (*ContentGrid, error)
	AddExternalHull(grid *ContentGrid) *ContentGrid
}

// SurrogateModel approximates an expensive fitness component from a
// feature vector. Staleness between refits is an accepted trade-off,
// not an error condition.
type SurrogateModel interface {
	Predict(features []float64) float64
	Fit(features [][]float64, targets []float64) error
}

// ExpanderFunc adapts a plain function to the Expander interface.
type ExpanderFunc func(ctx context.Context, genotype string) (string, error)

func (f ExpanderFunc) Expand(ctx context.Context, genotype string) (string, error) {
	return f(ctx, genotype)
}
