package main

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"
	"sync"

	"github.com/voxpcg/pcgse-go/pkg/core"
)

// blockKinds is the demo block alphabet. Grid cell values are 1-based
// indices into this slice.
var blockKinds = []string{"armor", "cockpit", "thruster", "reactor", "gyro", "container", "light"}

// demoExpander grows genotypes by appending one block token per call.
// Armor dominates the rule weights so hulls stay mostly structural.
type demoExpander struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newDemoExpander(seed int64) *demoExpander {
	return &demoExpander{rng: rand.New(rand.NewSource(seed))}
}

func (e *demoExpander) Expand(_ context.Context, genotype string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Rough rule weights: half the productions add armor.
	kind := blockKinds[0]
	if e.rng.Float64() > 0.5 {
		kind = blockKinds[1+e.rng.Intn(len(blockKinds)-1)]
	}
	return genotype + ">" + kind, nil
}

// demoBuilder materializes a token chain into a voxel grid. Placement
// is a pure function of the token sequence, so equal genotypes always
// produce equal phenotypes.
type demoBuilder struct{}

func (demoBuilder) Materialize(_ context.Context, derivation string) (*core.ContentGrid, error) {
	tokens := strings.Split(derivation, ">")
	grid := core.NewContentGrid(len(tokens)+2, 6, 6, blockKinds)

	x, y, z := 0, 2, 2
	for _, token := range tokens {
		kind := kindIndex(token)
		if kind == 0 {
			continue
		}
		grid.Set(x, y, z, kind)

		// Token hash steers the walk off the main axis now and then.
		h := tokenHash(token, x)
		switch h % 4 {
		case 0:
			if y+1 < 6 {
				y++
			}
		case 1:
			if y > 0 {
				y--
			}
		case 2:
			if z+1 < 6 {
				z++
			}
		}
		x++
	}
	return grid, nil
}

// AddExternalHull plates armor beneath every occupied voxel, the way
// an external hull generator would close the ship's underside.
func (demoBuilder) AddExternalHull(grid *core.ContentGrid) *core.ContentGrid {
	for x := 0; x < grid.X; x++ {
		for y := 1; y < grid.Y; y++ {
			for z := 0; z < grid.Z; z++ {
				if grid.At(x, y, z) != 0 && grid.At(x, y-1, z) == 0 {
					grid.Set(x, y-1, z, 1)
				}
			}
		}
	}
	return grid
}

func kindIndex(token string) int {
	for i, kind := range blockKinds {
		if kind == token {
			return i + 1
		}
	}
	return 0
}

func tokenHash(token string, x int) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	h.Write([]byte{byte(x)})
	return int(h.Sum32())
}
