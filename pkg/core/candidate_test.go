package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateIdentity(t *testing.T) {
	a := NewCandidateSolution("corridor(2)cockpit(1)")
	b := NewCandidateSolution("corridor(2)cockpit(1)")

	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.Feasible)
	assert.Equal(t, 0, a.Age)
	assert.False(t, a.HasContent())
}

func TestCandidateSetContent(t *testing.T) {
	c := NewCandidateSolution("corridor(2)")
	grid := NewContentGrid(2, 2, 2, []string{"armor"})
	grid.Set(0, 0, 0, 1)
	grid.Set(1, 0, 0, 1)

	c.SetContent(grid)
	require.True(t, c.HasContent())
	assert.Equal(t, 2, c.NBlocks)
}

func TestCandidateClone(t *testing.T) {
	c := NewCandidateSolution("corridor(2)")
	c.FitnessVector = []float64{0.5, 0.8}
	c.BehaviorVector = []float64{1.2, 3.4}
	c.Age = 3

	cp := c.Clone()
	cp.FitnessVector[0] = 0.9
	cp.Age = 0

	assert.Equal(t, 0.5, c.FitnessVector[0])
	assert.Equal(t, 3, c.Age)
	assert.Equal(t, c.Genotype, cp.Genotype)
}

func TestGridBoundingBoxAndAxes(t *testing.T) {
	grid := NewContentGrid(10, 10, 10, []string{"armor"})
	// A 4x2x1 slab offset inside the grid.
	for x := 3; x < 7; x++ {
		for y := 5; y < 7; y++ {
			grid.Set(x, y, 4, 1)
		}
	}

	dx, dy, dz := grid.BoundingBox()
	assert.Equal(t, [3]int{4, 2, 1}, [3]int{dx, dy, dz})
	assert.Equal(t, [3]int{4, 2, 1}, grid.SortedAxes())
	assert.Equal(t, 8, grid.OccupiedCount())
}

func TestGridSymmetry(t *testing.T) {
	grid := NewContentGrid(4, 1, 1, []string{"armor"})
	grid.Set(0, 0, 0, 1)
	grid.Set(3, 0, 0, 1)
	// Fully mirror-symmetric along x.
	assert.Equal(t, 1.0, grid.Symmetry())

	asym := NewContentGrid(2, 2, 2, []string{"armor"})
	asym.Set(0, 0, 0, 1)
	asym.Set(1, 1, 0, 1)
	asym.Set(0, 1, 1, 1)
	// No mirror image along any axis lands on an occupied voxel.
	assert.Equal(t, 0.0, asym.Symmetry())

	empty := NewContentGrid(4, 4, 4, []string{"armor"})
	assert.Equal(t, 0.0, empty.Symmetry())
}

func TestGridKinds(t *testing.T) {
	grid := NewContentGrid(2, 1, 1, []string{"armor", "thruster"})
	grid.Set(0, 0, 0, 1)
	grid.Set(1, 0, 0, 2)

	assert.Equal(t, "armor", grid.KindAt(0, 0, 0))
	assert.Equal(t, "thruster", grid.KindAt(1, 0, 0))
	assert.Equal(t, "", grid.KindAt(5, 0, 0))
	assert.Equal(t, 1, grid.CountKind("thruster"))
	assert.Equal(t, 0, grid.CountKind("gyro"))
}
