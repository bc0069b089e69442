package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newRescheduleCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reschedule <deck>",
		Short: "Recompute every card's schedule from its review history",
		Long: "Replay the review history of every card in the deck with the deck's current\n" +
			"settings. This runs automatically after 'scry deck set' changes the retention\n" +
			"or maximum interval, and can be run by hand after editing the configuration.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				deck, err := app.deckService.GetDeck(ctx, args[0])
				if err != nil {
					return err
				}
				result, err := app.cardReviewService.RescheduleDeck(ctx, deck.ID)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), result, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Rescheduled %d card(s) in %q, skipped %d\n", result.Cards, deck.Name, result.Skipped)
					return err
				})
			})
		},
	}
}
