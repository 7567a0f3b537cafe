package core

// CandidateSolution is the genotype/phenotype record evolved by the
// archive. The genotype string is the natural key: two candidates with
// equal genotype are duplicates for feedback keying.
type CandidateSolution struct {
	// Genotype is the derivation string produced by the grammar
	// expander. Immutable once the candidate is finalized for a
	// generation.
	Genotype string

	// Phenotype is the voxel content grid, derived lazily through the
	// structure builder and cached here.
	Phenotype *ContentGrid

	// FitnessVector holds one component per registered fitness
	// function, each inside its declared bounds.
	FitnessVector []float64

	// BehaviorVector holds one component per behavior descriptor and
	// is used only to compute the archive cell address.
	BehaviorVector []float64

	// Age counts generations survived since creation.
	Age int

	// Feasible reports whether the candidate satisfies structural
	// constraints.
	Feasible bool

	// NBlocks caches the phenotype's occupied voxel count for display.
	NBlocks int
}

// NewCandidateSolution creates a fresh, unaged candidate for a genotype.
func NewCandidateSolution(genotype string) *CandidateSolution {
	return &CandidateSolution{
		Genotype: genotype,
		Feasible: true,
	}
}

// Key returns the candidate's identity for buffer/feedback keying.
func (c *CandidateSolution) Key() string {
	return c.Genotype
}

// SetContent caches the materialized phenotype on the candidate.
func (c *CandidateSolution) SetContent(grid *ContentGrid) {
	c.Phenotype = grid
	if grid != nil {
		c.NBlocks = grid.OccupiedCount()
	}
}

// HasContent reports whether the phenotype has been materialized.
func (c *CandidateSolution) HasContent() bool {
	return c.Phenotype != nil
}

// Clone returns a deep copy sharing the immutable phenotype grid.
// Vectors are copied so archive members never alias evaluator output.
func (c *CandidateSolution) Clone() *CandidateSolution {
	cp := *c
	cp.FitnessVector = append([]float64(nil), c.FitnessVector...)
	cp.BehaviorVector = append([]float64(nil), c.BehaviorVector...)
	return &cp
}
