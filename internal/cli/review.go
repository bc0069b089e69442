package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/phrazzld/scry-fsrs/internal/service/card_review"
	"github.com/spf13/cobra"
)

// reviewTime holds the --at flag shared by the review commands.
type reviewTime struct {
	at string
}

func (r *reviewTime) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.at, "at", "", "evaluate at this RFC 3339 time instead of now")
}

func (r *reviewTime) now() (time.Time, error) {
	if r.at == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, r.at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: expected RFC 3339, e.g. 2025-03-10T09:00:00Z", r.at)
	}
	return t.UTC(), nil
}

func newReviewCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Study a deck",
		Long: "Study a deck one card at a time:\n\n" +
			"  scry review next <deck>               show the next card\n" +
			"  scry review answer <card-id> <rating> rate it again, hard, good or easy (or 1-4)",
	}
	cmd.AddCommand(
		newReviewNextCmd(opts),
		newReviewAnswerCmd(opts),
		newReviewPreviewCmd(opts),
		newReviewPostponeCmd(opts),
	)
	return cmd
}

func newReviewNextCmd(opts *globalOptions) *cobra.Command {
	var (
		at       reviewTime
		showBack bool
	)
	cmd := &cobra.Command{
		Use:   "next <deck>",
		Short: "Show the next card due for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := at.now()
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				deck, err := app.deckService.GetDeck(ctx, args[0])
				if err != nil {
					return err
				}
				next, err := app.cardReviewService.GetNextCard(ctx, deck.ID, now)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), next, func(w io.Writer) error {
					return printNextCard(w, next, showBack)
				})
			})
		},
	}
	at.register(cmd)
	cmd.Flags().BoolVar(&showBack, "show-back", false, "print the answer side too")
	return cmd
}

func printNextCard(w io.Writer, next *card_review.NextCard, showBack bool) error {
	switch next.Status {
	case srs.EmptyDeck:
		_, err := fmt.Fprintln(w, "This deck has no cards. Add some with: scry card add <deck>")
		return err
	case srs.AllCaughtUp:
		_, err := fmt.Fprintln(w, "All caught up. Nothing is due right now.")
		return err
	case srs.DailyLimitReached:
		_, err := fmt.Fprintf(w, "Daily limit reached (%d new, %d reviews today). Come back tomorrow.\n",
			next.Progress.NewCardsSeen, next.Progress.ReviewCardsSeen)
		return err
	}

	c := next.Card
	fmt.Fprintf(w, "Card %s (%s)\n\n", c.ID, c.Memory.State)
	fmt.Fprintf(w, "  %s\n\n", c.Front)
	if showBack {
		fmt.Fprintf(w, "  %s\n\n", c.Back)
	}
	if next.Preview != nil {
		if err := printPreview(w, *next.Preview); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\nDue now: %d learning, %d review, %d new\n",
		next.Counts.Learning, next.Counts.Review, next.Counts.New)
	return err
}

// printPreview writes one line per rating with the interval it would schedule.
func printPreview(w io.Writer, p srs.Preview) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range srs.Ratings {
		o := p.For(r)
		fmt.Fprintf(tw, "  %d %s\t%s\t%s\n", int(r), r, formatInterval(o.Interval), o.State)
	}
	return tw.Flush()
}

func newReviewAnswerCmd(opts *globalOptions) *cobra.Command {
	var at reviewTime
	cmd := &cobra.Command{
		Use:   "answer <card-id> <rating>",
		Short: "Record how well you recalled a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rating, err := srs.ParseRating(args[1])
			if err != nil {
				return fmt.Errorf("%w: use again, hard, good, easy or 1-4", err)
			}
			now, err := at.now()
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				result, err := app.cardReviewService.SubmitAnswer(ctx, id, rating, now)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) error {
					m := result.Card.Memory
					_, err := fmt.Fprintf(w, "Rated %s. Next review %s (%s, in %s)\n",
						rating, formatDue(m), m.State, formatInterval(m.Due.Sub(now)))
					return err
				})
			})
		},
	}
	at.register(cmd)
	return cmd
}

func newReviewPreviewCmd(opts *globalOptions) *cobra.Command {
	var at reviewTime
	cmd := &cobra.Command{
		Use:   "preview <card-id>",
		Short: "Show what each rating would do to a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			now, err := at.now()
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				preview, err := app.cardReviewService.Preview(ctx, id, now)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), preview, func(w io.Writer) error {
					m := preview.Card.Memory
					fmt.Fprintf(w, "Card %s (%s, %d reviews, %d lapses)\n", preview.Card.ID, m.State, m.Reps, m.Lapses)
					if m.State != srs.New {
						fmt.Fprintf(w, "Recall probability: %.0f%%\n", preview.Retrievability*100)
					}
					fmt.Fprintln(w)
					return printPreview(w, preview.Outcome)
				})
			})
		},
	}
	at.register(cmd)
	return cmd
}

func newReviewPostponeCmd(opts *globalOptions) *cobra.Command {
	var at reviewTime
	cmd := &cobra.Command{
		Use:   "postpone <card-id> <days>",
		Short: "Push a reviewed card's due date back without rating it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			days, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid number of days %q", args[1])
			}
			now, err := at.now()
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				card, err := app.cardReviewService.PostponeCard(ctx, id, days, now)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), card, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Postponed card %s to %s\n", card.ID, formatDue(card.Memory))
					return err
				})
			})
		},
	}
	at.register(cmd)
	return cmd
}
