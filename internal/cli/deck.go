package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/scry-fsrs/internal/domain"
	"github.com/phrazzld/scry-fsrs/internal/service/card_review"
	"github.com/spf13/cobra"
)

// settingsFlags collects per-deck overrides. Only flags given on the command
// line are applied.
type settingsFlags struct {
	newPerDay   int
	maxReviews  int
	retention   float64
	maxInterval int
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&f.newPerDay, "new-per-day", 0, "new cards per day (-1 for unlimited)")
	flags.IntVar(&f.maxReviews, "reviews-per-day", 0, "reviews per day (-1 for unlimited)")
	flags.Float64Var(&f.retention, "retention", 0, "target probability of recall, in (0, 1]")
	flags.IntVar(&f.maxInterval, "max-interval", 0, "longest interval in days")
}

func (f *settingsFlags) settings(cmd *cobra.Command) domain.DeckSettings {
	var s domain.DeckSettings
	flags := cmd.Flags()
	if flags.Changed("new-per-day") {
		s.NewCardsPerDay = &f.newPerDay
	}
	if flags.Changed("reviews-per-day") {
		s.MaxReviewsPerDay = &f.maxReviews
	}
	if flags.Changed("retention") {
		s.RequestRetention = &f.retention
	}
	if flags.Changed("max-interval") {
		s.MaximumInterval = &f.maxInterval
	}
	return s
}

func newDeckCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deck",
		Short: "Create, inspect and configure decks",
	}
	cmd.AddCommand(
		newDeckCreateCmd(opts),
		newDeckListCmd(opts),
		newDeckShowCmd(opts),
		newDeckSetCmd(opts),
		newDeckDeleteCmd(opts),
	)
	return cmd
}

func newDeckCreateCmd(opts *globalOptions) *cobra.Command {
	var flags settingsFlags
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				deck, err := app.deckService.CreateDeck(ctx, args[0], flags.settings(cmd))
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), deck, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Created deck %q (%s)\n", deck.Name, deck.ID)
					return err
				})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newDeckListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				decks, err := app.deckService.ListDecks(ctx)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), decks, func(w io.Writer) error {
					if len(decks) == 0 {
						_, err := fmt.Fprintln(w, "No decks yet. Create one with: scry deck create <name>")
						return err
					}
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tCREATED")
					for _, d := range decks {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Name, d.CreatedAt.Local().Format(time.DateOnly))
					}
					return tw.Flush()
				})
			})
		},
	}
}

func newDeckShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <deck>",
		Short: "Show a deck's settings and today's queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				deck, err := app.deckService.GetDeck(ctx, args[0])
				if err != nil {
					return err
				}
				status, err := app.cardReviewService.QueueStatus(ctx, deck.ID, time.Now())
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), status, func(w io.Writer) error {
					return printQueueStatus(w, status)
				})
			})
		},
	}
}

func printQueueStatus(w io.Writer, status *card_review.QueueStatus) error {
	d, c, p := status.Deck, status.Counts, status.Progress
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Deck:\t%s (%s)\n", d.Name, d.ID)
	fmt.Fprintf(tw, "Retention:\t%s\n", formatOverride(d.Settings.RequestRetention))
	fmt.Fprintf(tw, "Max interval:\t%s\n", formatOverride(d.Settings.MaximumInterval))
	fmt.Fprintf(tw, "New today:\t%d / %s\n", p.NewCardsSeen, formatLimit(status.Limits.NewCardsPerDay))
	fmt.Fprintf(tw, "Reviews today:\t%d / %s\n", p.ReviewCardsSeen, formatLimit(status.Limits.MaxReviewsPerDay))
	fmt.Fprintf(tw, "Cards:\t%d new, %d learning, %d due, %d not due (%d total)\n",
		c.New, c.Learning, c.Review, c.NotDue, c.Total)
	return tw.Flush()
}

func newDeckSetCmd(opts *globalOptions) *cobra.Command {
	var flags settingsFlags
	cmd := &cobra.Command{
		Use:   "set <deck>",
		Short: "Change a deck's overrides",
		Long: "Change a deck's overrides. Changing the retention or the maximum interval\n" +
			"recomputes the schedule of every reviewed card in the deck.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := flags.settings(cmd)
			if update == (domain.DeckSettings{}) {
				return fmt.Errorf("nothing to change: pass at least one of --new-per-day, --reviews-per-day, --retention, --max-interval")
			}
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				deck, err := app.deckService.GetDeck(ctx, args[0])
				if err != nil {
					return err
				}
				deck, err = app.deckService.UpdateSettings(ctx, deck.ID, update)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), deck, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated deck %q\n", deck.Name)
					return err
				})
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newDeckDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <deck>",
		Short: "Delete a deck with all of its cards and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				deck, err := app.deckService.GetDeck(ctx, args[0])
				if err != nil {
					return err
				}
				if err := app.deckService.DeleteDeck(ctx, deck.ID); err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), deck, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted deck %q\n", deck.Name)
					return err
				})
			})
		},
	}
}
