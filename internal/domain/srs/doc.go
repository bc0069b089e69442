// Package srs implements the spaced-repetition scheduling engine.
//
// The engine tracks each card's memory as a stability (days until recall
// probability falls to 90%) and a difficulty in [1, 10], and moves cards through
// the New, Learning, Review and Relearning states as they are rated.
//
// Three entry points cover a review session:
//
//   - ScheduleReview commits one rating and returns the card's next state
//   - PreviewOutcomes shows what each rating would do, without committing
//   - SelectNextCard picks the next card to show under daily limits
//
// Every function is pure. The engine never logs, never touches storage and keeps
// no state between calls; DailyProgress is passed in and returned by the caller.
// Fuzz is drawn from a generator seeded by the card id and its due date, so the
// same review always produces the same result.
package srs
