// Package service contains the application use cases. It coordinates the
// domain types, the scheduling engine and the stores defined in internal/store
// to fulfil commands issued by the CLI.
//
// Key components:
//
//   - DeckService manages decks, their per-deck scheduling overrides and their
//     cards. Changing overrides that affect scheduling emits a
//     DeckSettingsChanged event.
//   - card_review.CardReviewService runs a study session: choosing the next
//     card, committing answers, postponing and rescheduling.
//
// Services receive their dependencies through constructor injection and never
// depend on a specific store implementation.
package service
