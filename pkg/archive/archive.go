// Package archive implements the discretized behavior-space grid: per
// cell it keeps a capped feasible population, a separately capped
// infeasible partition for diagnostics, and the cell elite.
package archive

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/voxpcg/pcgse-go/pkg/behavior"
	"github.com/voxpcg/pcgse-go/pkg/core"
	"github.com/voxpcg/pcgse-go/pkg/errors"
	"github.com/voxpcg/pcgse-go/pkg/fitness"
	"github.com/voxpcg/pcgse-go/pkg/logging"
)

// CellAddr is a tuple of bin indices, one per behavior-descriptor
// dimension.
type CellAddr []int

// String renders the address as "(b0,b1,...)" for map keying and
// feedback routing.
func (a CellAddr) String() string {
	parts := make([]string, len(a))
	for i, b := range a {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Equal reports whether two addresses index the same cell.
func (a CellAddr) Equal(b CellAddr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// InsertOutcome describes what happened to a candidate on insertion.
type InsertOutcome int

const (
	// Added: the cell had room and the candidate joined the feasible
	// population.
	Added InsertOutcome = iota
	// Replaced: the cell was full and the candidate evicted the worst
	// member.
	Replaced
	// Rejected: the cell was full and the candidate did not beat the
	// worst member, or duplicated an existing genotype.
	Rejected
	// RoutedInfeasible: the candidate went to the infeasible partition.
	RoutedInfeasible
)

func (o InsertOutcome) String() string {
	return [...]string{"added", "replaced", "rejected", "infeasible"}[o]
}

type cell struct {
	addr       CellAddr
	feasible   []*core.CandidateSolution
	infeasible []*core.CandidateSolution
	elite      *core.CandidateSolution
}

// Archive is the quality-diversity map. All mutation happens under the
// generation guard; the archive's own lock only protects snapshot reads
// against in-flight mutation.
type Archive struct {
	mu          sync.RWMutex
	bins        int
	binPopSize  int
	maxAge      int
	eliteExempt bool
	descriptors []behavior.Descriptor
	fitnesses   []fitness.Fitness
	cells       map[string]*cell
	logger      *logging.Logger
}

// Config carries the grid parameters.
type Config struct {
	Bins                 int
	BinPopSize           int
	MaxAge               int
	EliteExemptFromAging bool
}

// New creates an empty archive over the given descriptor set.
func New(cfg Config, descriptors []behavior.Descriptor, fitnesses []fitness.Fitness) *Archive {
	return &Archive{
		bins:        cfg.Bins,
		binPopSize:  cfg.BinPopSize,
		maxAge:      cfg.MaxAge,
		eliteExempt: cfg.EliteExemptFromAging,
		descriptors: descriptors,
		fitnesses:   fitnesses,
		cells:       make(map[string]*cell),
		logger:      logging.GetLogger(),
	}
}

// Bins returns the number of bins per behavior dimension.
func (a *Archive) Bins() int { return a.bins }

// BinPopSize returns the feasible population cap per cell.
func (a *Archive) BinPopSize() int { return a.binPopSize }

// MaxAge returns the maximum member age.
func (a *Archive) MaxAge() int { return a.maxAge }

// Descriptors returns the behavior descriptor set.
func (a *Archive) Descriptors() []behavior.Descriptor { return a.descriptors }

// AddrFor computes the cell address for a behavior vector.
func (a *Archive) AddrFor(behaviorVec []float64) CellAddr {
	addr := make(CellAddr, len(a.descriptors))
	for i, d := range a.descriptors {
		v := 0.0
		if i < len(behaviorVec) {
			v = behaviorVec[i]
		}
		addr[i] = d.Bin(v, a.bins)
	}
	return addr
}

// aggregate is the weighted ranking fitness.
func (a *Archive) aggregate(c *core.CandidateSolution) float64 {
	return fitness.Aggregate(a.fitnesses, c.FitnessVector)
}

// better reports whether x outranks y: higher aggregate fitness, ties
// broken by lower age.
func (a *Archive) better(x, y *core.CandidateSolution) bool {
	fx, fy := a.aggregate(x), a.aggregate(y)
	if fx != fy {
		return fx > fy
	}
	return x.Age < y.Age
}

func (a *Archive) getOrCreateCell(addr CellAddr) *cell {
	key := addr.String()
	c, ok := a.cells[key]
	if !ok {
		c = &cell{addr: append(CellAddr(nil), addr...)}
		a.cells[key] = c
	}
	return c
}

func (c *cell) recomputeElite(a *Archive) {
	c.elite = nil
	for _, m := range c.feasible {
		if c.elite == nil || a.better(m, c.elite) {
			c.elite = m
		}
	}
}

// Insert places a candidate into the cell addressed by its behavior
// vector. Infeasible candidates go to the diagnostic partition and
// never compete for the feasible population cap.
func (a *Archive) Insert(cand *core.CandidateSolution) InsertOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.AddrFor(cand.BehaviorVector)
	c := a.getOrCreateCell(addr)

	if !cand.Feasible {
		a.insertInfeasible(c, cand)
		return RoutedInfeasible
	}

	for _, m := range c.feasible {
		if m.Genotype == cand.Genotype {
			return Rejected
		}
	}

	if len(c.feasible) < a.binPopSize {
		c.feasible = append(c.feasible, cand)
		c.recomputeElite(a)
		return Added
	}

	worst := 0
	for i := 1; i < len(c.feasible); i++ {
		if a.better(c.feasible[worst], c.feasible[i]) {
			worst = i
		}
	}
	if !a.better(cand, c.feasible[worst]) {
		return Rejected
	}
	c.feasible[worst] = cand
	c.recomputeElite(a)
	return Replaced
}

func (a *Archive) insertInfeasible(c *cell, cand *core.CandidateSolution) {
	if len(c.infeasible) < a.binPopSize {
		c.infeasible = append(c.infeasible, cand)
		return
	}
	worst := 0
	for i := 1; i < len(c.infeasible); i++ {
		if a.better(c.infeasible[worst], c.infeasible[i]) {
			worst = i
		}
	}
	c.infeasible[worst] = cand
}

// AgeAll applies the per-generation aging pass: every member's age
// increments, and members past MaxAge are evicted. The cell elite is
// spared when the exemption policy is on.
func (a *Archive) AgeAll() (evicted int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for key, c := range a.cells {
		kept := c.feasible[:0]
		for _, m := range c.feasible {
			m.Age++
			if m.Age > a.maxAge && !(a.eliteExempt && m == c.elite) {
				evicted++
				continue
			}
			kept = append(kept, m)
		}
		c.feasible = kept

		keptInf := c.infeasible[:0]
		for _, m := range c.infeasible {
			m.Age++
			if m.Age > a.maxAge {
				evicted++
				continue
			}
			keptInf = append(keptInf, m)
		}
		c.infeasible = keptInf

		c.recomputeElite(a)
		if len(c.feasible) == 0 && len(c.infeasible) == 0 {
			delete(a.cells, key)
		}
	}
	return evicted
}

// NonEmptyAddrs returns the addresses of every cell with at least one
// feasible member, in unspecified order.
func (a *Archive) NonEmptyAddrs() []CellAddr {
	a.mu.RLock()
	defer a.mu.RUnlock()

	addrs := make([]CellAddr, 0, len(a.cells))
	for _, c := range a.cells {
		if len(c.feasible) > 0 {
			addrs = append(addrs, append(CellAddr(nil), c.addr...))
		}
	}
	return addrs
}

// FeasibleMembers returns a copy of the feasible population of a cell.
func (a *Archive) FeasibleMembers(addr CellAddr) []*core.CandidateSolution {
	a.mu.RLock()
	defer a.mu.RUnlock()

	c, ok := a.cells[addr.String()]
	if !ok {
		return nil
	}
	return append([]*core.CandidateSolution(nil), c.feasible...)
}

// Elite returns the cell elite, or nil for empty cells.
func (a *Archive) Elite(addr CellAddr) *core.CandidateSolution {
	a.mu.RLock()
	defer a.mu.RUnlock()

	c, ok := a.cells[addr.String()]
	if !ok {
		return nil
	}
	return c.elite
}

// SampleMember returns a uniformly sampled feasible member from the
// addressed cell, falling back to uniform sampling over all non-empty
// cells when the cell has no feasible members.
func (a *Archive) SampleMember(addr CellAddr, rng *rand.Rand) (*core.CandidateSolution, error) {
	members := a.FeasibleMembers(addr)
	if len(members) == 0 {
		a.logger.Debug(context.Background(), "cell %s empty, falling back to uniform sampling", addr)
		addrs := a.NonEmptyAddrs()
		if len(addrs) == 0 {
			return nil, errors.New(errors.EmptyArchive, "archive has no feasible members")
		}
		members = a.FeasibleMembers(addrs[rng.Intn(len(addrs))])
	}
	return members[rng.Intn(len(members))], nil
}

// AddrOfGenotype locates the cell holding a candidate with the given
// genotype, searching both partitions.
func (a *Archive) AddrOfGenotype(genotype string) (CellAddr, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, c := range a.cells {
		for _, m := range c.feasible {
			if m.Genotype == genotype {
				return c.addr, true
			}
		}
		for _, m := range c.infeasible {
			if m.Genotype == genotype {
				return c.addr, true
			}
		}
	}
	return nil, false
}

// FeasibleCount returns the total feasible population across cells.
func (a *Archive) FeasibleCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := 0
	for _, c := range a.cells {
		n += len(c.feasible)
	}
	return n
}

// Coverage returns the number of cells holding feasible members.
func (a *Archive) Coverage() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := 0
	for _, c := range a.cells {
		if len(c.feasible) > 0 {
			n++
		}
	}
	return n
}
