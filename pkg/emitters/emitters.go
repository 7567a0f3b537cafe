// Package emitters implements the selection strategies that decide
// which archive members seed the next generation. All variants are
// interchangeable behind the Emitter interface: the controller never
// branches on emitter identity, only the emitter's private state
// differs.
package emitters

import (
	"math/rand"
	"sync"

	"github.com/voxpcg/pcgse-go/pkg/archive"
	"github.com/voxpcg/pcgse-go/pkg/core"
	"github.com/voxpcg/pcgse-go/pkg/errors"
)

// Emitter selects seed candidates from the archive and absorbs
// per-cell rewards after each generation.
type Emitter interface {
	// Name identifies the emitter in metrics and persisted runs.
	Name() string

	// Select returns one seed candidate for reproduction.
	Select(a *archive.Archive) (*core.CandidateSolution, error)

	// Update feeds the merged per-cell rewards from the feedback
	// buffer back into the emitter's internal statistics.
	Update(rewards map[string]float64)

	// Reset clears any state accumulated across generations.
	Reset()
}

// Names accepted by the factory.
const (
	NameRandom           = "random"
	NameHumanPreference  = "human-preference"
	NameContextualBandit = "contextual-bandit"
)

// Config carries the factory parameters.
type Config struct {
	// Bandit policy: "ucb1" or "epsilon-greedy"
	BanditPolicy string
	ExplorationC float64
	Epsilon      float64
	Seed         int64
}

// New builds the named emitter.
func New(name string, cfg Config) (Emitter, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))
	switch name {
	case NameRandom:
		return NewRandomEmitter(rng), nil
	case NameHumanPreference:
		return NewHumanPreferenceMatrixEmitter(rng), nil
	case NameContextualBandit:
		policy, err := NewPolicy(cfg)
		if err != nil {
			return nil, err
		}
		return NewContextualBanditEmitter(policy, rng), nil
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unknown emitter"),
			errors.Fields{"name": name},
		)
	}
}

// RandomEmitter uniformly samples a non-empty cell, then uniformly
// samples one feasible member from it. No state across calls.
type RandomEmitter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomEmitter(rng *rand.Rand) *RandomEmitter {
	return &RandomEmitter{rng: rng}
}

func (e *RandomEmitter) Name() string { return NameRandom }

func (e *RandomEmitter) Select(a *archive.Archive) (*core.CandidateSolution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	addrs := a.NonEmptyAddrs()
	if len(addrs) == 0 {
		return nil, errors.New(errors.EmptyArchive, "archive has no feasible members")
	}
	addr := addrs[e.rng.Intn(len(addrs))]
	return a.SampleMember(addr, e.rng)
}

func (e *RandomEmitter) Update(map[string]float64) {}

func (e *RandomEmitter) Reset() {}

// HumanPreferenceMatrixEmitter keeps a weight per cell from cumulative
// recorded preference and samples cells proportionally to it. Cells
// with zero weight have zero probability unless all weights are zero,
// in which case sampling falls back to uniform.
type HumanPreferenceMatrixEmitter struct {
	mu      sync.Mutex
	rng     *rand.Rand
	weights map[string]float64
}

func NewHumanPreferenceMatrixEmitter(rng *rand.Rand) *HumanPreferenceMatrixEmitter {
	return &HumanPreferenceMatrixEmitter{
		rng:     rng,
		weights: make(map[string]float64),
	}
}

func (e *HumanPreferenceMatrixEmitter) Name() string { return NameHumanPreference }

func (e *HumanPreferenceMatrixEmitter) Select(a *archive.Archive) (*core.CandidateSolution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	addrs := a.NonEmptyAddrs()
	if len(addrs) == 0 {
		return nil, errors.New(errors.EmptyArchive, "archive has no feasible members")
	}

	total := 0.0
	cumulative := make([]float64, len(addrs))
	for i, addr := range addrs {
		w := e.weights[addr.String()]
		if w < 0 {
			w = 0
		}
		total += w
		cumulative[i] = total
	}

	var addr archive.CellAddr
	if total == 0 {
		addr = addrs[e.rng.Intn(len(addrs))]
	} else {
		r := e.rng.Float64() * total
		addr = addrs[len(addrs)-1]
		for i, c := range cumulative {
			if r < c {
				addr = addrs[i]
				break
			}
		}
	}
	return a.SampleMember(addr, e.rng)
}

func (e *HumanPreferenceMatrixEmitter) Update(rewards map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, r := range rewards {
		e.weights[key] += r
	}
}

func (e *HumanPreferenceMatrixEmitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights = make(map[string]float64)
}

// Weight exposes a cell's cumulative preference, for tests and display.
func (e *HumanPreferenceMatrixEmitter) Weight(key string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.weights[key]
}
