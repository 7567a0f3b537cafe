// Package controller drives the interactive evolution loop: one guarded
// generation step at a time, feeding user preferences back into the
// emitters and keeping the archive and metrics current.
package controller

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/voxpcg/pcgse-go/pkg/archive"
	"github.com/voxpcg/pcgse-go/pkg/behavior"
	"github.com/voxpcg/pcgse-go/pkg/buffer"
	"github.com/voxpcg/pcgse-go/pkg/config"
	"github.com/voxpcg/pcgse-go/pkg/core"
	"github.com/voxpcg/pcgse-go/pkg/emitters"
	"github.com/voxpcg/pcgse-go/pkg/errors"
	"github.com/voxpcg/pcgse-go/pkg/fitness"
	"github.com/voxpcg/pcgse-go/pkg/logging"
	"github.com/voxpcg/pcgse-go/pkg/metrics"
)

// Guard labels for the operations that serialize on the busy lock.
const (
	OpGeneration = "generation"
	OpReset      = "reset"
)

// defaultAxiom seeds the very first batch, before the archive holds
// any parent to select from.
const defaultAxiom = "cockpit"

// ExperimentStore persists runs, snapshots and feedback. Persistence
// failures are logged and never abort a generation step.
type ExperimentStore interface {
	SaveRun(runID, emitter string) error
	SaveSnapshot(runID string, generation int, snap archive.Snapshot) error
	AppendFeedback(runID, key string, value float64) error
}

// GenerationResult summarizes one completed step.
type GenerationResult struct {
	Generation int
	Emitter    string
	Produced   int
	Inserted   int
	Infeasible int
	Dropped    int
	Evicted    int
	Elapsed    time.Duration
}

// Controller owns one live archive and the active emitter, and exposes
// the operations the front end calls. All mutation happens under the
// guard.
type Controller struct {
	cfg *config.Config

	guard    *Guard
	eval     *fitness.Evaluator
	expander core.Expander
	feedback *buffer.Buffer
	schedule []string

	axiom  string
	rng    *rand.Rand
	logger *logging.Logger
	ring   *logging.RingOutput
	store  ExperimentStore

	// mu protects the fields a reset swaps out, so the lock-free read
	// surface never observes a half-published experiment. The guard
	// serializes mutation; mu makes the swaps visible to readers.
	mu            sync.RWMutex
	arch          *archive.Archive
	emitter       emitters.Emitter
	experimentIdx int
	runID         string
	generation    int

	fitnessMetric  *metrics.Metric
	coverageMetric *metrics.Metric
	evictionMetric *metrics.Metric
}

// Option configures optional controller collaborators.
type Option func(*Controller)

// WithLogger overrides the process-global logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithEventFeed attaches the ring output backing EventFeed.
func WithEventFeed(ring *logging.RingOutput) Option {
	return func(c *Controller) { c.ring = ring }
}

// WithStore enables experiment persistence.
func WithStore(store ExperimentStore) Option {
	return func(c *Controller) { c.store = store }
}

// WithMergeStrategy overrides the feedback merge rule (mean by
// default).
func WithMergeStrategy(s buffer.MergeStrategy) Option {
	return func(c *Controller) { c.feedback = buffer.New(s) }
}

// WithAxiom overrides the seed genotype for the initial batch.
func WithAxiom(axiom string) Option {
	return func(c *Controller) { c.axiom = axiom }
}

// New assembles a controller from configuration. The expander and
// builder supply the grammar and voxel materialization; everything
// else comes from cfg.
func New(cfg *config.Config, expander core.Expander, builder core.StructureBuilder, opts ...Option) (*Controller, error) {
	if len(cfg.Emitters.Schedule) == 0 {
		return nil, errors.New(errors.InvalidInput, "emitter schedule is empty")
	}

	seed := cfg.Experiment.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	descriptors := behavior.DefaultDescriptors()
	fitnesses := fitness.ApplyWeights(fitness.DefaultFitnesses(), cfg.Fitness.Weights)

	evalOpts := []fitness.EvaluatorOption{}
	if cfg.Fitness.Surrogate.Enabled {
		model := fitness.NewRidgeSurrogate(cfg.Fitness.Surrogate.Lambda)
		evalOpts = append(evalOpts, fitness.WithSurrogate(
			model, "box-filling", cfg.Fitness.Surrogate.RetrainInterval))
	}

	c := &Controller{
		cfg:   cfg,
		guard: NewGuard(),
		arch: archive.New(archive.Config{
			Bins:                 cfg.Archive.Bins,
			BinPopSize:           cfg.Archive.BinPopSize,
			MaxAge:               cfg.Archive.MaxAge,
			EliteExemptFromAging: cfg.Archive.EliteExemptFromAging,
		}, descriptors, fitnesses),
		eval:     fitness.NewEvaluator(fitnesses, descriptors, builder, evalOpts...),
		expander: expander,
		feedback: buffer.New(buffer.MeanMerge{}),
		schedule: cfg.Emitters.Schedule,
		runID:    uuid.NewString(),
		axiom:    defaultAxiom,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	emitter, err := c.buildEmitter(c.schedule[0], seed)
	if err != nil {
		return nil, err
	}
	c.emitter = emitter
	c.resetMetrics()

	if c.store != nil {
		if err := c.store.SaveRun(c.runID, c.emitter.Name()); err != nil {
			c.logger.Warn(context.Background(), "failed to persist run %s: %v", c.runID, err)
		}
	}
	return c, nil
}

func (c *Controller) buildEmitter(name string, seed int64) (emitters.Emitter, error) {
	return emitters.New(name, emitters.Config{
		BanditPolicy: c.cfg.Emitters.Bandit.Policy,
		ExplorationC: c.cfg.Emitters.Bandit.ExplorationC,
		Epsilon:      c.cfg.Emitters.Bandit.Epsilon,
		Seed:         seed,
	})
}

func (c *Controller) resetMetrics() {
	name := c.emitter.Name()
	c.fitnessMetric = metrics.NewMetric(name, true)
	c.coverageMetric = metrics.NewMetric(name, false)
	c.evictionMetric = metrics.NewMetric(name, false)
}

// RunID identifies the current experiment run.
func (c *Controller) RunID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runID
}

// Generation returns the number of completed generation steps in the
// current experiment.
func (c *Controller) Generation() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// ActiveEmitter names the emitter driving selection.
func (c *Controller) ActiveEmitter() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.emitter.Name()
}

// Busy reports whether a mutating operation currently holds the guard.
func (c *Controller) Busy() bool {
	_, held := c.guard.Holder()
	return held
}

// Snapshot returns a read-only copy of the archive with heatmap color
// bounds.
func (c *Controller) Snapshot() archive.Snapshot {
	c.mu.RLock()
	arch := c.arch
	c.mu.RUnlock()
	return arch.Snapshot(c.cfg.Archive.NoveltyScoreConstant)
}

// FitnessHistory returns the per-generation mean feasible fitness.
func (c *Controller) FitnessHistory() []float64 {
	c.mu.RLock()
	m := c.fitnessMetric
	c.mu.RUnlock()
	return m.Averages()
}

// CoverageHistory returns the per-generation filled-cell counts.
func (c *Controller) CoverageHistory() []float64 {
	c.mu.RLock()
	m := c.coverageMetric
	c.mu.RUnlock()
	return m.Averages()
}

// EvictionHistory returns the per-generation eviction counts.
func (c *Controller) EvictionHistory() []float64 {
	c.mu.RLock()
	m := c.evictionMetric
	c.mu.RUnlock()
	return m.Averages()
}

// ExportCoverage writes the per-generation coverage series as an
// Arrow IPC file.
func (c *Controller) ExportCoverage(w io.Writer) error {
	c.mu.RLock()
	m := c.coverageMetric
	c.mu.RUnlock()
	return m.ExportArrow(w)
}

// EventFeed returns the latest log lines for the UI console, oldest
// first. Empty when no ring output is attached.
func (c *Controller) EventFeed() []string {
	if c.ring == nil {
		return nil
	}
	return c.ring.Lines()
}

// RecordFeedback buffers a user preference. The key is either a cell
// address string or a candidate genotype; genotype keys are routed to
// the containing cell so emitters see cell-level rewards. It never
// blocks on the guard: feedback lands in the buffer and is consumed at
// the start of the next generation step.
func (c *Controller) RecordFeedback(key string, value float64) error {
	if key == "" {
		return errors.New(errors.InvalidInput, "feedback key is empty")
	}
	c.mu.RLock()
	arch, runID := c.arch, c.runID
	c.mu.RUnlock()

	if addr, ok := arch.AddrOfGenotype(key); ok {
		key = addr.String()
	}
	c.feedback.Record(key, value)
	if c.store != nil {
		if err := c.store.AppendFeedback(runID, key, value); err != nil {
			c.logger.Warn(context.Background(), "failed to persist feedback for %s: %v", key, err)
		}
	}
	return nil
}

// TriggerGeneration runs one generation step: consume buffered
// feedback, select parents, expand and evaluate a batch of offspring,
// insert them, then age the archive. A concurrent trigger while the
// guard is held fails fast with a Busy error.
func (c *Controller) TriggerGeneration(ctx context.Context) (*GenerationResult, error) {
	if !c.guard.TryAcquire(OpGeneration) {
		label, _ := c.guard.Holder()
		return nil, errors.WithFields(
			errors.New(errors.Busy, "experiment is busy"),
			errors.Fields{"operation": label},
		)
	}
	defer c.guard.Release()

	if err := errors.CheckContext(ctx, OpGeneration); err != nil {
		return nil, err
	}
	if c.generation >= c.cfg.Experiment.GenerationsAllowed {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "generation budget exhausted"),
			errors.Fields{"generations_allowed": c.cfg.Experiment.GenerationsAllowed},
		)
	}

	ctx = logging.WithGeneration(logging.WithEmitter(ctx, c.emitter.Name()), c.generation)
	start := time.Now()

	if rewards := c.feedback.ConsumeAll(); len(rewards) > 0 {
		rewards = c.pruneUnknownCells(ctx, rewards)
		if len(rewards) > 0 {
			c.logger.Debug(ctx, "applying %d merged feedback entries", len(rewards))
			c.emitter.Update(rewards)
		}
	}

	offspring := c.produceOffspring(ctx)
	result := &GenerationResult{
		Generation: c.generation,
		Emitter:    c.emitter.Name(),
		Produced:   len(offspring),
		Dropped:    c.cfg.Experiment.BatchSize - len(offspring),
	}

	failed := c.evaluateBatch(ctx, offspring)
	for i, cand := range offspring {
		if failed[i] != nil {
			c.logger.Warn(ctx, "dropping candidate from batch: %v", failed[i])
			result.Dropped++
			continue
		}
		if !cand.Feasible {
			result.Infeasible++
		}
		switch c.arch.Insert(cand) {
		case archive.Added, archive.Replaced:
			result.Inserted++
		}
	}

	result.Evicted = c.arch.AgeAll()
	c.recordStepMetrics(offspring, failed, result.Evicted)

	c.mu.Lock()
	c.generation++
	c.mu.Unlock()
	result.Elapsed = time.Since(start)

	if c.store != nil {
		snap := c.arch.Snapshot(c.cfg.Archive.NoveltyScoreConstant)
		if err := c.store.SaveSnapshot(c.runID, result.Generation, snap); err != nil {
			c.logger.Warn(ctx, "failed to persist snapshot: %v", err)
		}
	}

	c.logger.Info(ctx, "generation complete: produced=%d inserted=%d infeasible=%d evicted=%d coverage=%d",
		result.Produced, result.Inserted, result.Infeasible, result.Evicted, c.arch.Coverage())
	return result, nil
}

// produceOffspring selects parents through the active emitter and
// expands their genotypes. Before any candidate lands in the archive,
// the whole batch grows from the axiom.
func (c *Controller) produceOffspring(ctx context.Context) []*core.CandidateSolution {
	offspring := make([]*core.CandidateSolution, 0, c.cfg.Experiment.BatchSize)
	for i := 0; i < c.cfg.Experiment.BatchSize; i++ {
		parentGenotype := c.axiom
		if c.arch.FeasibleCount() > 0 {
			parent, err := c.emitter.Select(c.arch)
			if err != nil {
				c.logger.Warn(ctx, "parent selection failed, seeding from axiom: %v", err)
			} else {
				parentGenotype = parent.Genotype
			}
		}

		child, err := c.expander.Expand(ctx, parentGenotype)
		if err != nil {
			c.logger.Warn(ctx, "expansion failed for parent %q: %v", parentGenotype, err)
			continue
		}
		offspring = append(offspring, core.NewCandidateSolution(child))
	}
	return offspring
}

// evaluateBatch scores the offspring concurrently. Candidates are
// independent, so a bounded pool fans the work out; the returned slice
// holds the per-candidate error, nil on success.
func (c *Controller) evaluateBatch(ctx context.Context, offspring []*core.CandidateSolution) []error {
	failed := make([]error, len(offspring))

	p := pool.New().WithMaxGoroutines(c.cfg.Experiment.MaxGoroutines)
	for i, cand := range offspring {
		i, cand := i, cand
		p.Go(func() {
			_, _, err := c.eval.Evaluate(ctx, cand)
			failed[i] = err
		})
	}
	p.Wait()
	return failed
}

// pruneUnknownCells drops rewards keyed to cells the archive does not
// currently hold, so emitter state never accretes arms or weights that
// no selection can reference.
func (c *Controller) pruneUnknownCells(ctx context.Context, rewards map[string]float64) map[string]float64 {
	known := make(map[string]bool)
	for _, addr := range c.arch.NonEmptyAddrs() {
		known[addr.String()] = true
	}
	for key := range rewards {
		if !known[key] {
			c.logger.Debug(ctx, "discarding feedback for unknown cell %s", key)
			delete(rewards, key)
		}
	}
	return rewards
}

func (c *Controller) recordStepMetrics(offspring []*core.CandidateSolution, failed []error, evicted int) {
	for i, cand := range offspring {
		if failed[i] == nil && cand.Feasible {
			c.fitnessMetric.Add(c.eval.Aggregate(cand.FitnessVector))
		}
	}
	c.coverageMetric.Add(float64(c.arch.Coverage()))
	c.evictionMetric.Add(float64(evicted))

	name := c.emitter.Name()
	c.fitnessMetric.NewGeneration(name)
	c.coverageMetric.NewGeneration(name)
	c.evictionMetric.NewGeneration(name)
}

// ResetExperiment discards the archive and starts a fresh run. With an
// empty emitterName the schedule advances to its next entry; otherwise
// the named emitter takes over. Fails fast with Busy while a
// generation step is running.
func (c *Controller) ResetExperiment(ctx context.Context, emitterName string) error {
	if !c.guard.TryAcquire(OpReset) {
		return errors.New(errors.Busy, "experiment is busy")
	}
	defer c.guard.Release()

	if err := errors.CheckContext(ctx, OpReset); err != nil {
		return err
	}

	nextIdx := c.experimentIdx
	if emitterName == "" {
		nextIdx = (c.experimentIdx + 1) % len(c.schedule)
		emitterName = c.schedule[nextIdx]
	}
	emitter, err := c.buildEmitter(emitterName, c.rng.Int63())
	if err != nil {
		return err
	}

	// Build the replacement state fully before publishing, so readers
	// on the lock-free surface switch from one complete experiment to
	// another.
	arch := archive.New(archive.Config{
		Bins:                 c.cfg.Archive.Bins,
		BinPopSize:           c.cfg.Archive.BinPopSize,
		MaxAge:               c.cfg.Archive.MaxAge,
		EliteExemptFromAging: c.cfg.Archive.EliteExemptFromAging,
	}, c.eval.Descriptors(), c.eval.Fitnesses())
	runID := uuid.NewString()

	c.mu.Lock()
	c.arch = arch
	c.emitter = emitter
	c.experimentIdx = nextIdx
	c.generation = 0
	c.runID = runID
	c.resetMetrics()
	c.mu.Unlock()

	c.feedback.Reset()

	if c.store != nil {
		if err := c.store.SaveRun(runID, emitterName); err != nil {
			c.logger.Warn(ctx, "failed to persist run %s: %v", runID, err)
		}
	}

	c.logger.Info(ctx, "experiment reset: emitter=%s run=%s", emitterName, runID)
	return nil
}
