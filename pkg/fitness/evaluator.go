package fitness

import (
	"context"
	"sync"

	"github.com/voxpcg/pcgse-go/pkg/behavior"
	"github.com/voxpcg/pcgse-go/pkg/core"
	"github.com/voxpcg/pcgse-go/pkg/errors"
	"github.com/voxpcg/pcgse-go/pkg/logging"
)

// Constraint is a named structural/functional feasibility check.
type Constraint struct {
	Name  string
	Check func(*core.CandidateSolution) bool
}

// DefaultConstraints returns the standard feasibility checks: the ship
// must have content and at least one functional block.
func DefaultConstraints() []Constraint {
	return []Constraint{
		{
			Name: "non-empty",
			Check: func(c *core.CandidateSolution) bool {
				return c.Phenotype != nil && c.Phenotype.OccupiedCount() > 0
			},
		},
		{
			Name: "has-functional-block",
			Check: func(c *core.CandidateSolution) bool {
				if c.Phenotype == nil {
					return false
				}
				for _, kind := range FunctionalBlockKinds {
					if c.Phenotype.CountKind(kind) > 0 {
						return true
					}
				}
				return false
			},
		},
	}
}

// Evaluator materializes a candidate's phenotype and computes its
// fitness and behavior vectors. A surrogate model may stand in for one
// expensive fitness component once it has been trained.
type Evaluator struct {
	fitnesses   []Fitness
	descriptors []behavior.Descriptor
	builder     core.StructureBuilder
	constraints []Constraint
	logger      *logging.Logger

	// Surrogate state
	surrogate       core.SurrogateModel
	surrogateFor    string
	retrainInterval int

	mu          sync.Mutex
	trainX      [][]float64
	trainY      []float64
	directEvals int
	sinceRefit  int
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithConstraints replaces the default feasibility checks.
func WithConstraints(constraints []Constraint) EvaluatorOption {
	return func(e *Evaluator) {
		e.constraints = constraints
	}
}

// WithSurrogate installs a surrogate model for the named fitness
// component. The surrogate substitutes for direct evaluation once
// trained and is refit every interval direct evaluations.
func WithSurrogate(model core.SurrogateModel, component string, interval int) EvaluatorOption {
	return func(e *Evaluator) {
		e.surrogate = model
		e.surrogateFor = component
		if interval > 0 {
			e.retrainInterval = interval
		}
	}
}

// NewEvaluator creates an evaluator over the given fitness set and
// behavior descriptors.
func NewEvaluator(fitnesses []Fitness, descriptors []behavior.Descriptor, builder core.StructureBuilder, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		fitnesses:       fitnesses,
		descriptors:     descriptors,
		builder:         builder,
		constraints:     DefaultConstraints(),
		logger:          logging.GetLogger(),
		retrainInterval: 20,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fitnesses returns the registered fitness set.
func (e *Evaluator) Fitnesses() []Fitness {
	return e.fitnesses
}

// Descriptors returns the behavior descriptor set.
func (e *Evaluator) Descriptors() []behavior.Descriptor {
	return e.descriptors
}

// Aggregate reduces a fitness vector to the weighted ranking scalar.
func (e *Evaluator) Aggregate(vector []float64) float64 {
	return Aggregate(e.fitnesses, vector)
}

// Evaluate scores a candidate, filling and returning its fitness and
// behavior vectors. Infeasible candidates are not an error: they come
// back with Feasible=false and a zero fitness vector, and are routed to
// the infeasible partition by the archive.
func (e *Evaluator) Evaluate(ctx context.Context, c *core.CandidateSolution) ([]float64, []float64, error) {
	if err := errors.CheckContext(ctx, "evaluate"); err != nil {
		return nil, nil, err
	}

	if !c.HasContent() {
		grid, err := e.builder.Materialize(ctx, c.Genotype)
		if err != nil {
			return nil, nil, errors.WithFields(
				errors.Wrap(err, errors.EvaluationFailed, "failed to materialize phenotype"),
				errors.Fields{"genotype": c.Genotype},
			)
		}
		c.SetContent(e.builder.AddExternalHull(grid))
	}

	behaviorVec := behavior.Vector(e.descriptors, c)
	c.BehaviorVector = behaviorVec

	for _, constraint := range e.constraints {
		if !constraint.Check(c) {
			e.logger.Debug(ctx, "candidate infeasible: failed %s", constraint.Name)
			c.Feasible = false
			c.FitnessVector = make([]float64, len(e.fitnesses))
			return c.FitnessVector, behaviorVec, nil
		}
	}
	c.Feasible = true

	fitnessVec := make([]float64, len(e.fitnesses))
	for i, f := range e.fitnesses {
		if e.surrogate != nil && f.Name == e.surrogateFor {
			fitnessVec[i] = e.surrogateComponent(ctx, f, behaviorVec, c)
			continue
		}
		fitnessVec[i] = f.Func(c)
	}
	c.FitnessVector = fitnessVec
	return fitnessVec, behaviorVec, nil
}

// surrogateComponent returns the surrogate prediction when the model is
// warm, falling back to direct evaluation on a fixed cadence so fresh
// training pairs keep arriving.
func (e *Evaluator) surrogateComponent(ctx context.Context, f Fitness, features []float64, c *core.CandidateSolution) float64 {
	type trained interface{ Trained() bool }

	e.mu.Lock()
	useModel := false
	if tm, ok := e.surrogate.(trained); ok {
		useModel = tm.Trained() && e.directEvals%e.retrainInterval != 0
	}
	e.directEvals++
	e.mu.Unlock()

	if useModel {
		v := e.surrogate.Predict(features)
		// Predictions honor the component's declared bounds.
		if v < f.Bounds[0] {
			v = f.Bounds[0]
		}
		if v > f.Bounds[1] {
			v = f.Bounds[1]
		}
		return v
	}

	truth := f.Func(c)
	e.recordTrainingPair(ctx, features, truth)
	return truth
}

func (e *Evaluator) recordTrainingPair(ctx context.Context, features []float64, truth float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.trainX = append(e.trainX, append([]float64(nil), features...))
	e.trainY = append(e.trainY, truth)
	e.sinceRefit++

	if e.sinceRefit < e.retrainInterval || len(e.trainX) <= len(features) {
		return
	}
	if err := e.surrogate.Fit(e.trainX, e.trainY); err != nil {
		e.logger.Warn(ctx, "surrogate refit failed: %v", err)
		return
	}
	e.sinceRefit = 0
	e.logger.Debug(ctx, "surrogate refit on %d pairs", len(e.trainX))
}
