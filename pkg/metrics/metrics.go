// Package metrics tracks per-generation experiment time series,
// attributed to the emitter active in each generation.
package metrics

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Metric is a process-scoped time series: one scalar or list value per
// generation index, tagged with the active emitter's name.
type Metric struct {
	mu             sync.Mutex
	multipleValues bool
	currentGen     int
	history        map[int][]float64
	emitterNames   []string
}

// NewMetric creates a metric starting at generation 0 under the given
// emitter. multipleValues selects list mode, where Add appends instead
// of accumulating.
func NewMetric(emitter string, multipleValues bool) *Metric {
	return &Metric{
		multipleValues: multipleValues,
		history:        map[int][]float64{0: {}},
		emitterNames:   []string{emitter},
	}
}

// Add records a value for the current generation. In scalar mode,
// values accumulate; in list mode they append.
func (m *Metric) Add(value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.multipleValues {
		m.history[m.currentGen] = append(m.history[m.currentGen], value)
		return
	}
	if len(m.history[m.currentGen]) == 0 {
		m.history[m.currentGen] = []float64{0}
	}
	m.history[m.currentGen][0] += value
}

// Reset clears the current generation's value without advancing.
func (m *Metric) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[m.currentGen] = []float64{}
}

// NewGeneration advances the generation counter under the given
// emitter name.
func (m *Metric) NewGeneration(emitter string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentGen++
	m.history[m.currentGen] = []float64{}
	m.emitterNames = append(m.emitterNames, emitter)
}

// Generations returns the number of recorded generations, current
// included.
func (m *Metric) Generations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentGen + 1
}

// Current returns the current generation's accumulated value (scalar
// mode) or the mean of its values (list mode). Empty generations
// report 0.
func (m *Metric) Current() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return mean(m.history[m.currentGen])
}

// Averages returns one value per generation: the scalar for scalar
// mode, the mean of recorded values for list mode.
func (m *Metric) Averages() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]float64, m.currentGen+1)
	for gen := 0; gen <= m.currentGen; gen++ {
		out[gen] = mean(m.history[gen])
	}
	return out
}

// EmitterNames returns the emitter active at each generation.
func (m *Metric) EmitterNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.emitterNames...)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

var titleCaser = cases.Title(language.English)

// DisplayName renders an emitter identifier for UI labels:
// "contextual-bandit" becomes "Contextual Bandit".
func DisplayName(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "-", " "))
}
