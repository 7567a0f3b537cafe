package archive

import "github.com/voxpcg/pcgse-go/pkg/fitness"

// CellSnapshot is the per-cell view the front end renders.
type CellSnapshot struct {
	Addr           CellAddr `json:"addr"`
	Size           int      `json:"size"`
	InfeasibleSize int      `json:"infeasible_size"`
	EliteFitness   float64  `json:"elite_fitness"`
	EliteAge       int      `json:"elite_age"`
	EliteGenotype  string   `json:"elite_genotype"`
}

// Snapshot is a read-only copy of the archive for heatmap rendering.
// Zmax bounds let the front end normalize its color scales.
type Snapshot struct {
	Bins        int            `json:"bins"`
	Dims        int            `json:"dims"`
	Cells       []CellSnapshot `json:"cells"`
	FitnessZmax float64        `json:"fitness_zmax"`
	AgeZmax     int            `json:"age_zmax"`
	CoverageZmax int           `json:"coverage_zmax"`
}

// Snapshot captures the current grid state. The noveltyConstant widens
// the fitness color bound past the weighted upper bounds.
func (a *Archive) Snapshot(noveltyConstant float64) Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snap := Snapshot{
		Bins:         a.bins,
		Dims:         len(a.descriptors),
		Cells:        make([]CellSnapshot, 0, len(a.cells)),
		FitnessZmax:  fitness.MaxAggregate(a.fitnesses) + noveltyConstant,
		AgeZmax:      a.maxAge,
		CoverageZmax: a.binPopSize,
	}

	for _, c := range a.cells {
		cs := CellSnapshot{
			Addr:           append(CellAddr(nil), c.addr...),
			Size:           len(c.feasible),
			InfeasibleSize: len(c.infeasible),
		}
		if c.elite != nil {
			cs.EliteFitness = a.aggregate(c.elite)
			cs.EliteAge = c.elite.Age
			cs.EliteGenotype = c.elite.Genotype
		}
		snap.Cells = append(snap.Cells, cs)
	}
	return snap
}
