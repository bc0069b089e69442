package srs

import "math"

// Model bounds.
const (
	// MinStability is the smallest stability, in days, the model produces.
	MinStability = 0.01

	minDifficulty = 1.0
	maxDifficulty = 10.0
)

// MemoryParams is the pair of model variables carried by a reviewed card.
type MemoryParams struct {
	Stability  float64
	Difficulty float64
}

// model holds the weights together with the constants derived from them.
// It is built from a validated SchedulerConfig and never modified afterwards.
type model struct {
	w      [WeightCount]float64
	decay  float64 // -w[20]
	factor float64 // 0.9^(1/decay) - 1
}

func newModel(weights []float64) model {
	var m model
	copy(m.w[:], weights)
	m.decay = -m.w[20]
	m.factor = math.Pow(0.9, 1/m.decay) - 1
	return m
}

// retrievability returns the probability of recall after elapsedDays for a
// memory of the given stability: R(t, S) = (1 + factor*t/S)^decay.
func (m model) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+m.factor*elapsedDays/stability, m.decay)
}

// initStability returns S0(G) = w[G-1].
func (m model) initStability(r Rating) float64 {
	return math.Max(m.w[r-1], MinStability)
}

// rawInitDifficulty returns D0(G) = w4 - e^(w5*(G-1)) + 1 without clamping.
func (m model) rawInitDifficulty(r Rating) float64 {
	return m.w[4] - math.Exp(m.w[5]*float64(r-1)) + 1
}

func (m model) initDifficulty(r Rating) float64 {
	return clampDifficulty(m.rawInitDifficulty(r))
}

// nextDifficulty applies the rating's delta with linear damping toward 10 and
// then reverts the result slightly toward D0(Easy).
//
//	ΔD  = -w6 * (G - 3)
//	D'  = D + (10 - D) * ΔD / 9
//	D'' = w7 * D0(Easy) + (1 - w7) * D'
func (m model) nextDifficulty(d float64, r Rating) float64 {
	delta := -m.w[6] * (float64(r) - 3)
	damped := d + (10-d)*delta/9
	reverted := m.w[7]*m.rawInitDifficulty(Easy) + (1-m.w[7])*damped
	return clampDifficulty(reverted)
}

// recallStability computes stability after a successful recall (Hard, Good or Easy).
//
// Growth is larger for low retrievability (the card was recalled after a longer
// gap than its stability predicted) and for low difficulty. Hard scales the
// growth down by w15, Easy scales it up by w16.
func (m model) recallStability(d, s, r float64, rating Rating) float64 {
	hardPenalty := 1.0
	if rating == Hard {
		hardPenalty = m.w[15]
	}
	easyBonus := 1.0
	if rating == Easy {
		easyBonus = m.w[16]
	}
	growth := math.Exp(m.w[8]) *
		(11 - d) *
		math.Pow(s, -m.w[9]) *
		(math.Exp((1-r)*m.w[10]) - 1) *
		hardPenalty * easyBonus
	return math.Max(s*(1+growth), MinStability)
}

// forgetStability computes stability after a lapse. The result is always
// strictly below s and strictly positive.
func (m model) forgetStability(d, s, r float64) float64 {
	long := m.w[11] *
		math.Pow(d, -m.w[12]) *
		(math.Pow(s+1, m.w[13]) - 1) *
		math.Exp((1-r)*m.w[14])
	short := s / math.Exp(m.w[17]*m.w[18])
	next := math.Max(math.Min(long, short), MinStability)
	if next >= s {
		next = s / 2
	}
	return next
}

// shortTermStability computes stability for a same-day review:
//
//	SInc = e^(w17 * (G - 3 + w18)) * S^(-w19), floored at 1 for Good and Easy
func (m model) shortTermStability(s float64, r Rating) float64 {
	inc := math.Exp(m.w[17]*(float64(r)-3+m.w[18])) * math.Pow(s, -m.w[19])
	if r >= Good {
		inc = math.Max(inc, 1)
	}
	return math.Max(s*inc, MinStability)
}

// longTerm updates a reviewed card's memory after elapsedDays. Stability is
// computed with the prior difficulty; difficulty is updated afterwards.
func (m model) longTerm(prior MemoryParams, elapsedDays int, r Rating) MemoryParams {
	t := float64(max(elapsedDays, 1))
	ret := m.retrievability(t, prior.Stability)

	var s float64
	if r == Again {
		s = m.forgetStability(prior.Difficulty, prior.Stability, ret)
	} else {
		s = m.recallStability(prior.Difficulty, prior.Stability, ret, r)
	}
	return MemoryParams{Stability: s, Difficulty: m.nextDifficulty(prior.Difficulty, r)}
}

// sameDay updates memory for a review inside a learning or relearning step.
func (m model) sameDay(prior MemoryParams, r Rating) MemoryParams {
	return MemoryParams{
		Stability:  m.shortTermStability(prior.Stability, r),
		Difficulty: m.nextDifficulty(prior.Difficulty, r),
	}
}

// initial returns the memory of a card on its first review.
func (m model) initial(r Rating) MemoryParams {
	return MemoryParams{Stability: m.initStability(r), Difficulty: m.initDifficulty(r)}
}

// UpdateMemory computes the stability and difficulty that follow a review.
//
// A nil prior means the card has never been reviewed, in which case the initial
// values for the rating are returned and elapsedDays is ignored. Otherwise the
// long-term update is applied. An elapsedDays of zero is treated as one day for
// the retrievability term only.
//
// Parameters:
//   - prior: The card's current memory, or nil for a new card
//   - elapsedDays: Whole days since the previous review
//   - rating: The review rating
//   - cfg: The scheduler configuration supplying the weights
//
// Returns:
//   - The new memory, with difficulty in [1, 10] and stability of at least MinStability
//     (a lapse may go lower to stay below the prior stability)
//   - *ConfigError or *InvalidRatingError on invalid input
func UpdateMemory(prior *MemoryParams, elapsedDays int, rating Rating, cfg SchedulerConfig) (MemoryParams, error) {
	if err := cfg.Validate(); err != nil {
		return MemoryParams{}, err
	}
	if !rating.IsValid() {
		return MemoryParams{}, &InvalidRatingError{Rating: rating}
	}
	m := newModel(cfg.Weights)
	if prior == nil {
		return m.initial(rating), nil
	}
	if !validStability(prior.Stability) {
		return MemoryParams{}, invalidState("stability must be positive and finite, got %v", prior.Stability)
	}
	if prior.Difficulty < minDifficulty || prior.Difficulty > maxDifficulty {
		return MemoryParams{}, invalidState("difficulty %v outside [%v, %v]", prior.Difficulty, minDifficulty, maxDifficulty)
	}
	return m.longTerm(*prior, max(elapsedDays, 0), rating), nil
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, minDifficulty), maxDifficulty)
}
