// Package pcgse implements an interactive quality-diversity search
// over procedurally generated voxel spaceships.
//
// The system maintains a MAP-Elites archive: a discretized behavior
// space where each cell keeps a small population of feasible designs
// plus a diagnostic partition for infeasible ones. Every generation,
// an emitter picks parent designs, a grammar expander mutates their
// genotypes, candidates are materialized into voxel grids and scored,
// and survivors are binned by behavior descriptors such as proportion
// ratios and structural symmetry.
//
// Key Components:
//
//   - core: CandidateSolution, the voxel ContentGrid, and the
//     Expander/StructureBuilder/SurrogateModel interfaces external
//     generators plug into.
//
//   - archive: the behavior-space grid with per-cell populations,
//     elites, aging and eviction, and read-only snapshots for heatmap
//     rendering.
//
//   - emitters: interchangeable parent-selection strategies:
//     * RandomEmitter: uniform over filled cells
//     * HumanPreferenceMatrixEmitter: cell weights learned from user
//     feedback
//     * ContextualBanditEmitter: cells as bandit arms under a
//     pluggable UCB1 or epsilon-greedy policy
//
//   - fitness: structural fitness functions, feasibility constraints,
//     and a ridge-regression surrogate that can stand in for an
//     expensive component once trained.
//
//   - buffer: the feedback buffer with pluggable merge strategies
//     (mean, sum, max) between generations.
//
//   - controller: the guarded generation loop wiring everything
//     together, with per-generation metrics and optional SQLite
//     persistence through the storage package.
//
// A minimal headless run:
//
//	cfg := config.GetDefaultConfig()
//	ctrl, err := controller.New(cfg, expander, builder)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for i := 0; i < cfg.Experiment.GenerationsAllowed; i++ {
//		if _, err := ctrl.TriggerGeneration(ctx); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// User preferences arrive asynchronously through RecordFeedback and
// are folded into the active emitter at the start of the next
// generation step.
package pcgse
