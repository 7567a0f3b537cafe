// Package testutil provides deterministic collaborator stubs shared by
// package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/voxpcg/pcgse-go/pkg/core"
)

// BlockKinds is the alphabet used by stub grids. The order matters:
// grid cell values are 1-based indices into this slice.
var BlockKinds = []string{"armor", "cockpit", "thruster", "reactor", "gyro", "container", "light"}

// SlabGrid builds a solid dx×dy×dz armor slab with a single cockpit at
// the origin, inside a grid two voxels larger per axis.
func SlabGrid(dx, dy, dz int) *core.ContentGrid {
	grid := core.NewContentGrid(dx+2, dy+2, dz+2, BlockKinds)
	for x := 0; x < dx; x++ {
		for y := 0; y < dy; y++ {
			for z := 0; z < dz; z++ {
				grid.Set(x, y, z, 1)
			}
		}
	}
	grid.Set(0, 0, 0, 2) // cockpit
	return grid
}

// StubExpander is a deterministic grammar expander: each call appends
// one production marker to the genotype.
type StubExpander struct {
	mu      sync.Mutex
	Calls   int
	FailFor map[string]error
}

func (e *StubExpander) Expand(_ context.Context, genotype string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.FailFor[genotype]; ok {
		return "", err
	}
	e.Calls++
	return fmt.Sprintf("%s>e%d", genotype, e.Calls), nil
}

// StubBuilder is a deterministic structure builder. Derivations with a
// registered grid get it back; anything else gets a slab whose major
// axis grows with the derivation length, so longer genotypes map to
// different archive cells.
type StubBuilder struct {
	mu        sync.Mutex
	Grids     map[string]*core.ContentGrid
	FailFor   map[string]error
	HullCalls int
}

func (b *StubBuilder) Materialize(_ context.Context, derivation string) (*core.ContentGrid, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.FailFor[derivation]; ok {
		return nil, err
	}
	if g, ok := b.Grids[derivation]; ok {
		return g, nil
	}
	dx := 2 + len(derivation)%7
	return SlabGrid(dx, 2, 2), nil
}

func (b *StubBuilder) AddExternalHull(grid *core.ContentGrid) *core.ContentGrid {
	b.mu.Lock()
	b.HullCalls++
	b.mu.Unlock()
	return grid
}

// Candidate builds an evaluated feasible candidate with explicit
// vectors, for archive-level tests that skip the evaluator.
func Candidate(genotype string, fitness, behavior []float64) *core.CandidateSolution {
	c := core.NewCandidateSolution(genotype)
	c.FitnessVector = append([]float64(nil), fitness...)
	c.BehaviorVector = append([]float64(nil), behavior...)
	c.Feasible = true
	return c
}
