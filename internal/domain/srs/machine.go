package srs

import "time"

const day = 24 * time.Hour

// decision is the outcome of one state transition before it is applied to a card.
// Exactly one of delay (a learning step) or days (a day interval) is set.
type decision struct {
	state State
	step  int
	mem   MemoryParams
	delay time.Duration
	days  int
}

// transition computes the state that follows answering prior with rating at the
// given time. prior is not modified.
func (s *Scheduler) transition(prior CardMemoryState, rating Rating, at time.Time) (CardMemoryState, error) {
	if !rating.IsValid() {
		return CardMemoryState{}, &InvalidRatingError{Rating: rating}
	}
	if err := prior.Validate(); err != nil {
		return CardMemoryState{}, err
	}

	elapsed := elapsedDays(prior.LastReviewAt, at)
	seedDue := at
	if prior.Due != nil {
		seedDue = *prior.Due
	}
	seed := FuzzSeed(prior.CardID, seedDue)

	var d decision
	switch prior.State {
	case New:
		d = s.fromNew(rating, seed)
	case Learning:
		d = s.fromLearning(prior, rating, elapsed, seed)
	case Review:
		d = s.fromReview(prior, rating, elapsed, seed)
	case Relearning:
		d = s.fromRelearning(prior, rating, elapsed, seed)
	}

	next := prior.Clone()
	next.State = d.state
	next.Step = d.step
	next.Stability = d.mem.Stability
	next.Difficulty = d.mem.Difficulty
	next.ElapsedDays = elapsed
	next.Reps++
	if prior.State == Review && rating == Again {
		next.Lapses++
	}

	var due time.Time
	if d.delay > 0 {
		due = at.Add(d.delay)
		next.ScheduledDays = int(d.delay / day)
	} else {
		due = at.Add(time.Duration(d.days) * day)
		next.ScheduledDays = d.days
	}
	reviewedAt := at
	next.Due = &due
	next.LastReviewAt = &reviewedAt
	return next, nil
}

// fromNew handles the first review of a card.
func (s *Scheduler) fromNew(rating Rating, seed uint64) decision {
	if rating == Easy && s.cfg.EasyGraduates {
		return s.graduate(rating, s.model.initial, seed)
	}

	mem := s.model.initial(rating)
	steps := s.steps(Learning)
	if len(steps) == 0 {
		if rating == Again {
			return decision{state: Learning, mem: mem, days: s.baseDays(mem)}
		}
		return s.graduate(rating, s.model.initial, seed)
	}
	return decision{state: Learning, step: 0, mem: mem, delay: steps[0]}
}

// fromLearning walks a card through the learning steps.
func (s *Scheduler) fromLearning(prior CardMemoryState, rating Rating, elapsed int, seed uint64) decision {
	memFor := s.stepMemory(prior, elapsed)
	steps := s.steps(Learning)

	if len(steps) == 0 {
		if rating == Again {
			mem := memFor(Again)
			return decision{state: Learning, mem: mem, days: s.baseDays(mem)}
		}
		return s.graduate(rating, memFor, seed)
	}

	// A step table shortened since the card was last reviewed leaves the card on its last step.
	step := min(prior.Step, len(steps)-1)
	switch rating {
	case Again:
		return decision{state: Learning, step: 0, mem: memFor(Again), delay: steps[0]}
	case Hard, Good:
		next := step + 1
		if next >= len(steps) {
			return s.graduate(rating, memFor, seed)
		}
		delay := steps[next]
		if rating == Hard {
			delay = (steps[step] + steps[next]) / 2
		}
		return decision{state: Learning, step: next, mem: memFor(rating), delay: delay}
	default:
		return s.graduate(rating, memFor, seed)
	}
}

// fromReview handles a card in long-term review.
func (s *Scheduler) fromReview(prior CardMemoryState, rating Rating, elapsed int, seed uint64) decision {
	current := MemoryParams{Stability: prior.Stability, Difficulty: prior.Difficulty}
	memFor := func(r Rating) MemoryParams {
		return s.model.longTerm(current, elapsed, r)
	}

	if rating != Again {
		return s.graduate(rating, memFor, seed)
	}

	mem := memFor(Again)
	steps := s.steps(Relearning)
	if len(steps) == 0 {
		return decision{state: Relearning, mem: mem, days: s.baseDays(mem)}
	}
	return decision{state: Relearning, step: 0, mem: mem, delay: steps[0]}
}

// fromRelearning handles a lapsed card. Any passing rating returns it to Review.
func (s *Scheduler) fromRelearning(prior CardMemoryState, rating Rating, elapsed int, seed uint64) decision {
	memFor := s.stepMemory(prior, elapsed)
	if rating != Again {
		return s.graduate(rating, memFor, seed)
	}

	mem := memFor(Again)
	steps := s.steps(Relearning)
	if len(steps) == 0 {
		return decision{state: Relearning, mem: mem, days: s.baseDays(mem)}
	}
	return decision{state: Relearning, step: 0, mem: mem, delay: steps[0]}
}

// graduate moves a card to Review with a day interval for rating, which must be
// Hard, Good or Easy.
//
// Intervals are computed for all three passing ratings and ordered so that
// hard <= good < easy, then jittered and ordered again. Only at the maximum
// interval can good and easy coincide.
func (s *Scheduler) graduate(rating Rating, memFor func(Rating) MemoryParams, seed uint64) decision {
	var (
		mems [Easy + 1]MemoryParams
		days [Easy + 1]int
	)
	for _, r := range [...]Rating{Hard, Good, Easy} {
		mems[r] = memFor(r)
		days[r] = s.baseDays(mems[r])
	}
	s.order(&days)

	if s.cfg.EnableFuzz {
		for _, r := range [...]Rating{Hard, Good, Easy} {
			days[r] = fuzz(days[r], s.cfg.MaximumInterval, seed+uint64(r))
		}
		s.order(&days)
	}
	return decision{state: Review, mem: mems[rating], days: days[rating]}
}

func (s *Scheduler) order(days *[Easy + 1]int) {
	days[Hard] = min(days[Hard], days[Good])
	days[Easy] = clampInterval(max(days[Easy], days[Good]+1), s.cfg.MaximumInterval)
}

func (s *Scheduler) baseDays(mem MemoryParams) int {
	return s.model.baseInterval(mem.Stability, s.cfg.RequestRetention, s.cfg.MaximumInterval)
}

// steps returns the step table for a state, or nil when short-term scheduling is off.
func (s *Scheduler) steps(st State) []time.Duration {
	if !s.cfg.EnableShortTerm {
		return nil
	}
	if st == Relearning {
		return s.cfg.RelearningSteps
	}
	return s.cfg.LearningSteps
}

// stepMemory returns the memory update used inside learning and relearning.
// Same-day reviews use the short-term formula when it is enabled.
func (s *Scheduler) stepMemory(prior CardMemoryState, elapsed int) func(Rating) MemoryParams {
	current := MemoryParams{Stability: prior.Stability, Difficulty: prior.Difficulty}
	return func(r Rating) MemoryParams {
		if s.cfg.EnableShortTerm && elapsed < 1 {
			return s.model.sameDay(current, r)
		}
		return s.model.longTerm(current, elapsed, r)
	}
}

// elapsedDays counts whole days between the last review and at. A review
// recorded before the previous one counts as zero days.
func elapsedDays(last *time.Time, at time.Time) int {
	if last == nil {
		return 0
	}
	d := at.Sub(*last)
	if d < 0 {
		return 0
	}
	return int(d / day)
}
