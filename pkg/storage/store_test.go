package storage

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxpcg/pcgse-go/pkg/archive"
	"github.com/voxpcg/pcgse-go/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{
		Path:      filepath.Join(t.TempDir(), "experiments.db"),
		EnableWAL: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	runID := uuid.NewString()
	require.NoError(t, s.SaveRun(runID, "random"))

	snap := archive.Snapshot{
		Bins: 8,
		Dims: 4,
		Cells: []archive.CellSnapshot{
			{
				Addr:          archive.CellAddr{2, 3, 1, 0},
				Size:          3,
				EliteFitness:  2.5,
				EliteAge:      1,
				EliteGenotype: "cockpit>e1",
			},
		},
		FitnessZmax:  4.5,
		AgeZmax:      10,
		CoverageZmax: 5,
	}
	require.NoError(t, s.SaveSnapshot(runID, 0, snap))

	got, err := s.LoadSnapshot(runID, 0)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	gens, err := s.Generations(runID)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, gens)
}

func TestLoadSnapshotNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadSnapshot("missing-run", 7)
	require.Error(t, err)
	assert.Equal(t, errors.ResourceNotFound, errors.CodeOf(err))
}

func TestSaveSnapshotReplacesGeneration(t *testing.T) {
	s := openTestStore(t)
	runID := uuid.NewString()

	require.NoError(t, s.SaveSnapshot(runID, 2, archive.Snapshot{Bins: 4}))
	require.NoError(t, s.SaveSnapshot(runID, 2, archive.Snapshot{Bins: 8}))

	got, err := s.LoadSnapshot(runID, 2)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Bins)

	gens, err := s.Generations(runID)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, gens, "re-saving does not duplicate the row")
}

func TestFeedbackLog(t *testing.T) {
	s := openTestStore(t)
	runID := uuid.NewString()

	require.NoError(t, s.AppendFeedback(runID, "(2,3,1,0)", 0.8))
	require.NoError(t, s.AppendFeedback(runID, "(2,3,1,0)", 0.4))
	require.NoError(t, s.AppendFeedback(runID, "(1,1,0,0)", -1))
	require.NoError(t, s.AppendFeedback("other-run", "(0,0,0,0)", 1))

	entries, err := s.FeedbackLog(runID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, FeedbackEntry{CellKey: "(2,3,1,0)", Value: 0.8}, entries[0])
	assert.Equal(t, FeedbackEntry{CellKey: "(2,3,1,0)", Value: 0.4}, entries[1])
	assert.Equal(t, FeedbackEntry{CellKey: "(1,1,0,0)", Value: -1}, entries[2])
}
