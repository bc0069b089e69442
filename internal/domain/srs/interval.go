package srs

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// fuzzRange widens the jitter by factor for the part of an interval that falls
// inside [start, end).
type fuzzRange struct {
	start, end float64
	factor     float64
}

var fuzzRanges = [...]fuzzRange{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.10},
	{20.0, math.Inf(1), 0.05},
}

// minFuzzInterval is the shortest interval that receives jitter.
const minFuzzInterval = 2.5

// baseInterval solves R(t, S) = requestRetention for t, rounds to whole days
// and clamps to [1, maxInterval].
func (m model) baseInterval(stability, requestRetention float64, maxInterval int) int {
	t := stability / m.factor * (math.Pow(requestRetention, 1/m.decay) - 1)
	// Clamp before converting: very low retention or huge stability overflows int.
	t = math.Min(math.Max(t, 1), float64(maxInterval))
	return clampInterval(int(math.Round(t)), maxInterval)
}

// fuzzDelta is the half-width of the jitter window for an interval.
func fuzzDelta(interval float64) float64 {
	delta := 1.0
	for _, r := range fuzzRanges {
		delta += r.factor * math.Max(math.Min(interval, r.end)-r.start, 0)
	}
	return delta
}

// fuzz draws an interval uniformly from [interval-Δ, interval+Δ] using a PCG
// generator seeded only by seed. Intervals below 2.5 days are returned as is.
func fuzz(interval, maxInterval int, seed uint64) int {
	if float64(interval) < minFuzzInterval {
		return interval
	}
	ivl := float64(interval)
	delta := fuzzDelta(ivl)

	lo := max(2, int(math.Round(ivl-delta)))
	hi := min(int(math.Round(ivl+delta)), maxInterval)
	lo = min(lo, hi)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return clampInterval(lo+rng.IntN(hi-lo+1), maxInterval)
}

func validStability(s float64) bool {
	return s > 0 && !math.IsInf(s, 1)
}

func clampInterval(days, maxInterval int) int {
	return min(max(days, 1), maxInterval)
}

// FuzzSeed derives the jitter seed for a card from its id and the due date the
// review answers. The same card answered against the same due date always gets
// the same seed.
func FuzzSeed(cardID uuid.UUID, due time.Time) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(cardID[:])
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(due.Unix()/86400))
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// NextInterval returns the interval in whole days after which recall probability
// falls to cfg.RequestRetention, clamped to [1, cfg.MaximumInterval].
func NextInterval(stability float64, cfg SchedulerConfig) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if !validStability(stability) {
		return 0, invalidState("stability must be positive and finite, got %v", stability)
	}
	m := newModel(cfg.Weights)
	return m.baseInterval(stability, cfg.RequestRetention, cfg.MaximumInterval), nil
}

// NextIntervalWithFuzz is NextInterval followed by seeded jitter when
// cfg.EnableFuzz is set. The result stays within [1, cfg.MaximumInterval] and
// depends only on its arguments.
func NextIntervalWithFuzz(stability float64, cfg SchedulerConfig, seed uint64) (int, error) {
	days, err := NextInterval(stability, cfg)
	if err != nil {
		return 0, err
	}
	if !cfg.EnableFuzz {
		return days, nil
	}
	return fuzz(days, cfg.MaximumInterval, seed), nil
}
