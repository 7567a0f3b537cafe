package fitness

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpcg/pcgse-go/internal/testutil"
	"github.com/voxpcg/pcgse-go/pkg/behavior"
	"github.com/voxpcg/pcgse-go/pkg/core"
	"github.com/voxpcg/pcgse-go/pkg/errors"
)

func newTestEvaluator(builder core.StructureBuilder, opts ...EvaluatorOption) *Evaluator {
	return NewEvaluator(DefaultFitnesses(), behavior.DefaultDescriptors(), builder, opts...)
}

func TestEvaluateMaterializesAndScores(t *testing.T) {
	builder := &testutil.StubBuilder{}
	e := newTestEvaluator(builder)

	c := core.NewCandidateSolution("corridor(2)cockpit(1)")
	fitVec, behVec, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)

	assert.True(t, c.HasContent())
	assert.True(t, c.Feasible)
	require.Len(t, fitVec, 4)
	require.Len(t, behVec, 4)
	assert.Equal(t, fitVec, c.FitnessVector)
	assert.Equal(t, behVec, c.BehaviorVector)
	assert.Equal(t, 1, builder.HullCalls)

	// Fitness components stay inside their declared bounds.
	for i, f := range e.Fitnesses() {
		assert.GreaterOrEqual(t, fitVec[i], f.Bounds[0], f.Name)
		assert.LessOrEqual(t, fitVec[i], f.Bounds[1], f.Name)
	}
}

func TestEvaluateCachedPhenotypeSkipsBuilder(t *testing.T) {
	builder := &testutil.StubBuilder{}
	e := newTestEvaluator(builder)

	c := core.NewCandidateSolution("cached")
	c.SetContent(testutil.SlabGrid(4, 2, 2))

	_, _, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 0, builder.HullCalls)
}

func TestEvaluateBuilderFailure(t *testing.T) {
	builder := &testutil.StubBuilder{
		FailFor: map[string]error{"bad": stderrors.New("no rule for symbol")},
	}
	e := newTestEvaluator(builder)

	_, _, err := e.Evaluate(context.Background(), core.NewCandidateSolution("bad"))
	require.Error(t, err)
	assert.Equal(t, errors.EvaluationFailed, errors.CodeOf(err))
}

func TestEvaluateInfeasibleIsNotAnError(t *testing.T) {
	// A structure with no functional block fails the default
	// constraints but must not surface as a failure.
	grid := core.NewContentGrid(4, 2, 2, testutil.BlockKinds)
	grid.Set(0, 0, 0, 1)
	builder := &testutil.StubBuilder{Grids: map[string]*core.ContentGrid{"hull-only": grid}}
	e := newTestEvaluator(builder)

	c := core.NewCandidateSolution("hull-only")
	fitVec, behVec, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)

	assert.False(t, c.Feasible)
	assert.Equal(t, make([]float64, 4), fitVec)
	require.Len(t, behVec, 4)
}

func TestEvaluateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEvaluator(&testutil.StubBuilder{})
	_, _, err := e.Evaluate(ctx, core.NewCandidateSolution("x"))
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
}

func TestSurrogateSubstitution(t *testing.T) {
	builder := &testutil.StubBuilder{}
	model := NewRidgeSurrogate(0.01)
	e := newTestEvaluator(builder, WithSurrogate(model, "box-filling", 5))

	ctx := context.Background()
	// Feed enough distinct candidates to trigger a refit. The stub
	// builder varies grids with derivation length.
	for i := 0; i < 30; i++ {
		c := core.NewCandidateSolution(fmt.Sprintf("genotype-%0*d", i%9+1, i))
		_, _, err := e.Evaluate(ctx, c)
		require.NoError(t, err)
	}

	assert.True(t, model.Trained())

	// A trained surrogate keeps predictions inside the component bounds.
	c := core.NewCandidateSolution("post-train-check")
	fitVec, _, err := e.Evaluate(ctx, c)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fitVec[0], 0.0)
	assert.LessOrEqual(t, fitVec[0], 1.0)
}

func TestRidgeSurrogateRecoversLinearTarget(t *testing.T) {
	model := NewRidgeSurrogate(1e-6)

	var features [][]float64
	var targets []float64
	for i := 0; i < 40; i++ {
		x := []float64{float64(i%7) / 7, float64(i%5) / 5}
		features = append(features, x)
		targets = append(targets, 0.3*x[0]+0.5*x[1]+0.1)
	}
	require.NoError(t, model.Fit(features, targets))
	require.True(t, model.Trained())

	pred := model.Predict([]float64{0.5, 0.5})
	assert.InDelta(t, 0.3*0.5+0.5*0.5+0.1, pred, 1e-3)
}

func TestRidgeSurrogateInvalidInput(t *testing.T) {
	model := NewRidgeSurrogate(0.1)
	assert.Error(t, model.Fit(nil, nil))
	assert.Error(t, model.Fit([][]float64{{1, 2}}, []float64{1, 2}))
	assert.Equal(t, 0.0, model.Predict([]float64{1, 2}))
}
