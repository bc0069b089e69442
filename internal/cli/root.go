package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/scry-fsrs/internal/config"
	"github.com/phrazzld/scry-fsrs/internal/platform/logger"
	"github.com/phrazzld/scry-fsrs/internal/redact"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	logLevel   string
	jsonOutput bool

	// set by the root command's PersistentPreRunE
	config *config.Config
	logger *slog.Logger
}

// NewRootCommand builds the scry command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "scry",
		Short: "Spaced repetition flashcards scheduled with FSRS",
		Long: "Scry keeps decks of flashcards and schedules their reviews with the FSRS memory model.\n" +
			"Data lives in a local SQLite file by default, or in PostgreSQL.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default $SCRY_CONFIG, ./config.yaml or ~/.scry/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newDeckCmd(opts))
	root.AddCommand(newCardCmd(opts))
	root.AddCommand(newReviewCmd(opts))
	root.AddCommand(newRescheduleCmd(opts))
	return root
}

// Execute runs the command line and prints any error, with credentials
// redacted, to stderr. It returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", redact.Error(err))
		return 1
	}
	return 0
}

// load reads the configuration and sets up logging.
func (o *globalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		if _, err := logger.ParseLevel(o.logLevel); err != nil {
			return err
		}
		cfg.Log.Level = o.logLevel
	}

	log, err := logger.Setup(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	o.config = cfg
	o.logger = log
	cmd.SetContext(logger.WithLogger(cmd.Context(), log))
	return nil
}

// withApp builds the application, runs fn and releases the application.
func (o *globalOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *application) error) error {
	ctx := cmd.Context()
	app, err := newApplication(ctx, o.config, o.logger)
	if err != nil {
		return err
	}
	defer app.close(ctx)
	return fn(ctx, app)
}

// render writes v as indented JSON when --json is set and calls text otherwise.
func (o *globalOptions) render(w io.Writer, v any, text func(w io.Writer) error) error {
	if o.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
