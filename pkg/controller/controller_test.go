package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpcg/pcgse-go/internal/testutil"
	"github.com/voxpcg/pcgse-go/pkg/archive"
	"github.com/voxpcg/pcgse-go/pkg/config"
	"github.com/voxpcg/pcgse-go/pkg/core"
	"github.com/voxpcg/pcgse-go/pkg/emitters"
	"github.com/voxpcg/pcgse-go/pkg/errors"
)

func testConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Experiment.Seed = 42
	cfg.Experiment.BatchSize = 3
	cfg.Experiment.MaxGoroutines = 2
	cfg.Experiment.GenerationsAllowed = 5
	return cfg
}

func newTestController(t *testing.T, cfg *config.Config, opts ...Option) *Controller {
	t.Helper()
	c, err := New(cfg, &testutil.StubExpander{}, &testutil.StubBuilder{}, opts...)
	require.NoError(t, err)
	return c
}

type recordingStore struct {
	mu        sync.Mutex
	runs      []string
	snapshots []int
	feedback  map[string]float64
}

func (s *recordingStore) SaveRun(runID, emitter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, runID)
	return nil
}

func (s *recordingStore) SaveSnapshot(runID string, generation int, snap archive.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, generation)
	return nil
}

func (s *recordingStore) AppendFeedback(runID, key string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedback == nil {
		s.feedback = map[string]float64{}
	}
	s.feedback[key] = value
	return nil
}

func TestTriggerGenerationPopulatesArchive(t *testing.T) {
	c := newTestController(t, testConfig())
	ctx := context.Background()

	result, err := c.TriggerGeneration(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Generation)
	assert.Equal(t, 3, result.Produced)
	assert.Greater(t, result.Inserted, 0)
	assert.Equal(t, 1, c.Generation())
	assert.NotEmpty(t, c.Snapshot().Cells)

	result, err = c.TriggerGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Generation)
	assert.Equal(t, 2, c.Generation())
}

func TestTriggerGenerationBudgetExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.Experiment.GenerationsAllowed = 1
	c := newTestController(t, cfg)
	ctx := context.Background()

	_, err := c.TriggerGeneration(ctx)
	require.NoError(t, err)

	_, err = c.TriggerGeneration(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
	assert.False(t, c.Busy(), "guard released after rejection")
}

// blockingExpander parks inside Expand until released, so a second
// trigger can observe the guard held mid-step.
type blockingExpander struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (e *blockingExpander) Expand(_ context.Context, genotype string) (string, error) {
	e.once.Do(func() {
		close(e.entered)
		<-e.release
	})
	return genotype + ">e", nil
}

func TestTriggerGenerationMutualExclusion(t *testing.T) {
	cfg := testConfig()
	exp := &blockingExpander{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c, err := New(cfg, exp, &testutil.StubBuilder{})
	require.NoError(t, err)

	type outcome struct {
		result *GenerationResult
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		r, err := c.TriggerGeneration(context.Background())
		first <- outcome{r, err}
	}()

	select {
	case <-exp.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first trigger never started expanding")
	}

	_, err = c.TriggerGeneration(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsBusy(err), "concurrent trigger rejected immediately")

	err = c.ResetExperiment(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsBusy(err), "reset rejected while a step runs")

	close(exp.release)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, 0, got.result.Generation)
	assert.False(t, c.Busy())
}

func TestResetExperimentAdvancesSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Emitters.Schedule = []string{
		config.EmitterRandom,
		config.EmitterContextualBandit,
	}
	c := newTestController(t, cfg)
	ctx := context.Background()

	_, err := c.TriggerGeneration(ctx)
	require.NoError(t, err)
	firstRun := c.RunID()
	assert.Equal(t, "random", c.ActiveEmitter())

	require.NoError(t, c.ResetExperiment(ctx, ""))
	assert.Equal(t, "contextual-bandit", c.ActiveEmitter())
	assert.Equal(t, 0, c.Generation())
	assert.NotEqual(t, firstRun, c.RunID())
	assert.Empty(t, c.Snapshot().Cells, "archive discarded on reset")

	// Wraps back around the schedule.
	require.NoError(t, c.ResetExperiment(ctx, ""))
	assert.Equal(t, "random", c.ActiveEmitter())
}

func TestResetExperimentNamedEmitter(t *testing.T) {
	c := newTestController(t, testConfig())
	ctx := context.Background()

	require.NoError(t, c.ResetExperiment(ctx, "human-preference"))
	assert.Equal(t, "human-preference", c.ActiveEmitter())

	err := c.ResetExperiment(ctx, "no-such-emitter")
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestRecordFeedback(t *testing.T) {
	store := &recordingStore{}
	c := newTestController(t, testConfig(), WithStore(store))

	require.NoError(t, c.RecordFeedback("(2,3,1,0)", 0.8))
	assert.Equal(t, 0.8, store.feedback["(2,3,1,0)"])

	err := c.RecordFeedback("", 1)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestRecordFeedbackRoutesGenotypeToCell(t *testing.T) {
	store := &recordingStore{}
	c := newTestController(t, testConfig(), WithStore(store))

	_, err := c.TriggerGeneration(context.Background())
	require.NoError(t, err)

	snap := c.Snapshot()
	require.NotEmpty(t, snap.Cells)
	target := snap.Cells[0]

	require.NoError(t, c.RecordFeedback(target.EliteGenotype, 0.9))
	assert.Equal(t, 0.9, store.feedback[target.Addr.String()],
		"genotype key lands on the containing cell")
}

func TestStorePersistsRunsAndSnapshots(t *testing.T) {
	store := &recordingStore{}
	c := newTestController(t, testConfig(), WithStore(store))
	ctx := context.Background()

	require.Len(t, store.runs, 1, "initial run persisted at construction")

	_, err := c.TriggerGeneration(ctx)
	require.NoError(t, err)
	_, err = c.TriggerGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, store.snapshots)

	require.NoError(t, c.ResetExperiment(ctx, ""))
	assert.Len(t, store.runs, 2)
}

func TestExpansionFailuresDropCandidates(t *testing.T) {
	cfg := testConfig()
	exp := &testutil.StubExpander{FailFor: map[string]error{
		defaultAxiom: errors.New(errors.ExpansionFailed, "no production applies"),
	}}
	c, err := New(cfg, exp, &testutil.StubBuilder{})
	require.NoError(t, err)

	result, err := c.TriggerGeneration(context.Background())
	require.NoError(t, err, "step completes even when every expansion fails")
	assert.Equal(t, 0, result.Produced)
	assert.Equal(t, cfg.Experiment.BatchSize, result.Dropped)
	assert.False(t, c.Busy())
}

func TestResetConcurrentWithSnapshotReads(t *testing.T) {
	c := newTestController(t, testConfig())
	ctx := context.Background()

	_, err := c.TriggerGeneration(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = c.Snapshot()
			_ = c.ActiveEmitter()
			_ = c.Generation()
			_ = c.RunID()
			_ = c.FitnessHistory()
			_ = c.RecordFeedback("(0,0,0,0)", 1)
		}
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, c.ResetExperiment(ctx, ""))
	}
	close(done)
	wg.Wait()

	assert.Equal(t, 0, c.Generation())
	assert.Empty(t, c.Snapshot().Cells)
}

func TestFeedbackForUnknownCellIsDiscarded(t *testing.T) {
	cfg := testConfig()
	cfg.Emitters.Schedule = []string{config.EmitterHumanPreference}
	c := newTestController(t, cfg)
	ctx := context.Background()

	_, err := c.TriggerGeneration(ctx)
	require.NoError(t, err)

	snap := c.Snapshot()
	require.NotEmpty(t, snap.Cells)
	knownKey := snap.Cells[0].Addr.String()

	require.NoError(t, c.RecordFeedback(knownKey, 1.0))
	require.NoError(t, c.RecordFeedback("(9,9,9,9)", 1.0))

	_, err = c.TriggerGeneration(ctx)
	require.NoError(t, err)

	hp, ok := c.emitter.(*emitters.HumanPreferenceMatrixEmitter)
	require.True(t, ok)
	assert.Equal(t, 1.0, hp.Weight(knownKey))
	assert.Zero(t, hp.Weight("(9,9,9,9)"),
		"feedback for an unpopulated cell never becomes a weight")
}

func TestMetricsTrackGenerations(t *testing.T) {
	c := newTestController(t, testConfig())
	ctx := context.Background()

	_, err := c.TriggerGeneration(ctx)
	require.NoError(t, err)
	_, err = c.TriggerGeneration(ctx)
	require.NoError(t, err)

	require.Len(t, c.CoverageHistory(), 3, "two closed generations plus the open one")
	assert.Greater(t, c.CoverageHistory()[0], 0.0)
	assert.Len(t, c.FitnessHistory(), 3)
}

func TestGuard(t *testing.T) {
	g := NewGuard()

	require.True(t, g.TryAcquire("generation"))
	label, held := g.Holder()
	assert.True(t, held)
	assert.Equal(t, "generation", label)

	assert.False(t, g.TryAcquire("reset"), "second acquire rejected")

	g.Release()
	_, held = g.Holder()
	assert.False(t, held)
	require.True(t, g.TryAcquire("reset"))
	g.Release()
}

var _ core.Expander = (*blockingExpander)(nil)
