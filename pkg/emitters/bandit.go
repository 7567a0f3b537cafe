package emitters

import (
	"math"
	"math/rand"
	"sync"

	"github.com/voxpcg/pcgse-go/pkg/archive"
	"github.com/voxpcg/pcgse-go/pkg/core"
	"github.com/voxpcg/pcgse-go/pkg/errors"
)

// Arm is one populated cell viewed as a bandit arm. The context is the
// cell's behavior-space address.
type Arm struct {
	Addr   archive.CellAddr
	Mean   float64 // running mean of merged rewards
	Visits int     // times this arm was selected
}

// Policy picks an arm index. Implementations must satisfy the
// monotonicity property: among arms with equal visit counts, a higher
// mean reward never lowers selection probability.
type Policy interface {
	Name() string
	Choose(arms []Arm, totalVisits int, rng *rand.Rand) int
}

// NewPolicy builds the configured bandit policy.
func NewPolicy(cfg Config) (Policy, error) {
	switch cfg.BanditPolicy {
	case "", "ucb1":
		c := cfg.ExplorationC
		if c <= 0 {
			c = math.Sqrt2
		}
		return UCB1{C: c}, nil
	case "epsilon-greedy":
		eps := cfg.Epsilon
		if eps <= 0 {
			eps = 0.2
		}
		return EpsilonGreedy{Epsilon: eps}, nil
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "unknown bandit policy"),
			errors.Fields{"policy": cfg.BanditPolicy},
		)
	}
}

// UCB1 selects the arm maximizing mean + C·√(ln N / n). Unvisited arms
// are tried first.
type UCB1 struct {
	C float64
}

func (UCB1) Name() string { return "ucb1" }

func (p UCB1) Choose(arms []Arm, totalVisits int, rng *rand.Rand) int {
	// Unvisited arms first, in random order among themselves.
	unvisited := make([]int, 0, len(arms))
	for i, a := range arms {
		if a.Visits == 0 {
			unvisited = append(unvisited, i)
		}
	}
	if len(unvisited) > 0 {
		return unvisited[rng.Intn(len(unvisited))]
	}

	best := 0
	bestScore := math.Inf(-1)
	logN := math.Log(float64(totalVisits) + 1)
	for i, a := range arms {
		score := a.Mean + p.C*math.Sqrt(logN/float64(a.Visits))
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// EpsilonGreedy exploits the best-mean arm with probability 1-ε and
// explores uniformly otherwise.
type EpsilonGreedy struct {
	Epsilon float64
}

func (EpsilonGreedy) Name() string { return "epsilon-greedy" }

func (p EpsilonGreedy) Choose(arms []Arm, _ int, rng *rand.Rand) int {
	if rng.Float64() < p.Epsilon {
		return rng.Intn(len(arms))
	}
	best := 0
	for i, a := range arms {
		if a.Mean > arms[best].Mean {
			best = i
		}
	}
	return best
}

type armStats struct {
	mean         float64
	observations int
	visits       int
}

// ContextualBanditEmitter treats each populated cell as an arm whose
// reward is the buffer's merged feedback for that cell. The policy
// balances exploitation of high-reward arms against exploration of
// under-sampled ones.
type ContextualBanditEmitter struct {
	mu     sync.Mutex
	rng    *rand.Rand
	policy Policy
	arms   map[string]*armStats
	total  int
}

func NewContextualBanditEmitter(policy Policy, rng *rand.Rand) *ContextualBanditEmitter {
	return &ContextualBanditEmitter{
		rng:    rng,
		policy: policy,
		arms:   make(map[string]*armStats),
	}
}

func (e *ContextualBanditEmitter) Name() string { return NameContextualBandit }

// Policy returns the installed arm-selection rule.
func (e *ContextualBanditEmitter) Policy() Policy { return e.policy }

func (e *ContextualBanditEmitter) Select(a *archive.Archive) (*core.CandidateSolution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	addrs := a.NonEmptyAddrs()
	if len(addrs) == 0 {
		return nil, errors.New(errors.EmptyArchive, "archive has no feasible members")
	}

	arms := make([]Arm, len(addrs))
	for i, addr := range addrs {
		arm := Arm{Addr: addr}
		if s, ok := e.arms[addr.String()]; ok {
			arm.Mean = s.mean
			arm.Visits = s.visits
		}
		arms[i] = arm
	}

	idx := e.policy.Choose(arms, e.total, e.rng)
	chosen := addrs[idx]

	s, ok := e.arms[chosen.String()]
	if !ok {
		s = &armStats{}
		e.arms[chosen.String()] = s
	}
	s.visits++
	e.total++

	return a.SampleMember(chosen, e.rng)
}

// Update folds merged rewards into the per-arm running means. The
// caller (the controller) consumes and thereby resets the buffer.
func (e *ContextualBanditEmitter) Update(rewards map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, r := range rewards {
		s, ok := e.arms[key]
		if !ok {
			s = &armStats{}
			e.arms[key] = s
		}
		s.observations++
		s.mean += (r - s.mean) / float64(s.observations)
	}
}

func (e *ContextualBanditEmitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arms = make(map[string]*armStats)
	e.total = 0
}

// ArmMean exposes an arm's running mean reward, for tests and display.
func (e *ContextualBanditEmitter) ArmMean(key string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.arms[key]; ok {
		return s.mean
	}
	return 0
}
