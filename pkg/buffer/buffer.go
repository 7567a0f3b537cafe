// Package buffer accumulates raw human-feedback values keyed by
// archive cell or candidate, and reduces them to scalar rewards with a
// pluggable merge strategy.
package buffer

import "sync"

// MergeStrategy is a pure reduction over an ordered sequence of raw
// feedback values. Neutral is returned when a key has no pending
// values; Merge is never called on an empty sequence.
type MergeStrategy interface {
	Name() string
	Merge(values []float64) float64
	Neutral() float64
}

// MeanMerge reduces to the arithmetic mean.
type MeanMerge struct{}

func (MeanMerge) Name() string { return "mean" }

func (MeanMerge) Merge(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func (MeanMerge) Neutral() float64 { return 0 }

// SumMerge reduces to the sum.
type SumMerge struct{}

func (SumMerge) Name() string { return "sum" }

func (SumMerge) Merge(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

func (SumMerge) Neutral() float64 { return 0 }

// MaxMerge reduces to the maximum value.
type MaxMerge struct{}

func (MaxMerge) Name() string { return "max" }

func (MaxMerge) Merge(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

func (MaxMerge) Neutral() float64 { return 0 }

// Buffer collects feedback values per key within a generation. Values
// accumulate until consumed, then the key resets.
type Buffer struct {
	mu      sync.Mutex
	pending map[string][]float64
	merge   MergeStrategy
}

// New creates a buffer with the given merge strategy. A nil strategy
// defaults to the arithmetic mean.
func New(strategy MergeStrategy) *Buffer {
	if strategy == nil {
		strategy = MeanMerge{}
	}
	return &Buffer{
		pending: make(map[string][]float64),
		merge:   strategy,
	}
}

// Strategy returns the installed merge strategy.
func (b *Buffer) Strategy() MergeStrategy {
	return b.merge
}

// Record appends a raw feedback value for a key.
func (b *Buffer) Record(key string, value float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[key] = append(b.pending[key], value)
}

// Consume merges all values recorded for a key since the last
// consumption and clears them. A key with no pending values yields the
// strategy's neutral value.
func (b *Buffer) Consume(key string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, ok := b.pending[key]
	if !ok || len(values) == 0 {
		return b.merge.Neutral()
	}
	delete(b.pending, key)
	return b.merge.Merge(values)
}

// ConsumeAll merges and clears every key with pending values.
func (b *Buffer) ConsumeAll() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]float64, len(b.pending))
	for key, values := range b.pending {
		if len(values) == 0 {
			continue
		}
		out[key] = b.merge.Merge(values)
	}
	b.pending = make(map[string][]float64)
	return out
}

// Pending returns the number of keys with unconsumed values.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, values := range b.pending {
		if len(values) > 0 {
			n++
		}
	}
	return n
}

// Reset discards all pending values.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = make(map[string][]float64)
}
