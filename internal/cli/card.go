package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/phrazzld/scry-fsrs/internal/service"
	"github.com/spf13/cobra"
)

func newCardCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Add, list and delete cards",
	}
	cmd.AddCommand(newCardAddCmd(opts), newCardListCmd(opts), newCardDeleteCmd(opts))
	return cmd
}

func newCardAddCmd(opts *globalOptions) *cobra.Command {
	var front, back, file string
	cmd := &cobra.Command{
		Use:   "add <deck>",
		Short: "Add cards to a deck",
		Long: "Add a single card with --front and --back, or many with --file.\n" +
			"The file holds one card per line as front<TAB>back; use - to read stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := cardInputs(cmd.InOrStdin(), front, back, file)
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				deck, err := app.deckService.GetDeck(ctx, args[0])
				if err != nil {
					return err
				}
				cards, err := app.deckService.AddCards(ctx, deck.ID, inputs)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), cards, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Added %d card(s) to %q\n", len(cards), deck.Name)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&front, "front", "", "question side")
	cmd.Flags().StringVar(&back, "back", "", "answer side")
	cmd.Flags().StringVarP(&file, "file", "f", "", "tab-separated file of cards, or - for stdin")
	cmd.MarkFlagsRequiredTogether("front", "back")
	cmd.MarkFlagsMutuallyExclusive("front", "file")
	return cmd
}

// cardInputs returns the card given by flags or read from file.
func cardInputs(stdin io.Reader, front, back, file string) ([]service.CardInput, error) {
	if file == "" {
		if front == "" && back == "" {
			return nil, errors.New("pass --front and --back, or --file")
		}
		return []service.CardInput{{Front: front, Back: back}}, nil
	}

	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	return readCardTSV(r)
}

// readCardTSV parses front<TAB>back lines. Blank lines and lines starting
// with # are skipped.
func readCardTSV(r io.Reader) ([]service.CardInput, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = 2
	reader.LazyQuotes = true

	var inputs []service.CardInput
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid card file: %w", err)
		}
		inputs = append(inputs, service.CardInput{
			Front: strings.TrimSpace(record[0]),
			Back:  strings.TrimSpace(record[1]),
		})
	}
	if len(inputs) == 0 {
		return nil, service.ErrNoCards
	}
	return inputs, nil
}

func newCardListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <deck>",
		Short: "List the cards of a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				deck, err := app.deckService.GetDeck(ctx, args[0])
				if err != nil {
					return err
				}
				cards, err := app.deckService.ListCards(ctx, deck.ID)
				if err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), cards, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tFRONT\tSTATE\tREPS\tDUE")
					for _, c := range cards {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
							c.ID, truncate(c.Front, 40), c.Memory.State, c.Memory.Reps, formatDue(c.Memory))
					}
					return tw.Flush()
				})
			})
		},
	}
}

func newCardDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <card-id>",
		Short: "Delete a card and its review history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *application) error {
				if err := app.deckService.DeleteCard(ctx, id); err != nil {
					return err
				}
				return opts.render(cmd.OutOrStdout(), map[string]string{"deleted": id.String()}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted card %s\n", id)
					return err
				})
			})
		},
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
