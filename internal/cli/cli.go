package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"lastshow/internal/candidate"
	"lastshow/internal/config"
	"lastshow/internal/extract"
	"lastshow/internal/fetch"
	"lastshow/internal/logger"
	"lastshow/internal/metro"
	"lastshow/internal/selector"
	"lastshow/internal/server"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUnknown = 2
)

var (
	flagConfig  string
	flagFormat  string
	flagVerbose bool

	flagArtist string
	flagMetro  string
	flagSlug   string
	flagPages  int

	flagURL  string
	flagFile string
)

// NewRootCmd creates the root command with its subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lso",
		Short: "Answer when and where an artist last played in a metro",
		Long: `lso extracts evidence-backed show candidates from listing pages,
arbitrary HTML, and Wayback captures, then deterministically selects the
most recent show for a target metro with the proof attached.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; explicit config errors are not.
			_ = godotenv.Load()
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			level := logger.ParseLevel(cfg.LogLevel)
			if flagVerbose {
				level = logger.LevelDebug
			}
			logger.SetDefault(logger.New(level, os.Stderr))
			loadedConfig = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(), newLastCmd(), newParseCmd(), newSelectCmd())
	return cmd
}

// loadedConfig is populated by the root PersistentPreRunE before any
// subcommand runs.
var loadedConfig *config.Config

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction and selection API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(loadedConfig).Run(ctx)
		},
	}
}

func newLastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Find an artist's most recent show in a metro",
		RunE:  runLast,
	}
	cmd.Flags().StringVar(&flagArtist, "artist", "", "Artist name (required)")
	cmd.Flags().StringVar(&flagMetro, "metro", "", "Metro id, e.g. SF or NYC (required)")
	cmd.Flags().StringVar(&flagSlug, "slug", "", "Listing slug override; derived from the artist name when empty")
	cmd.Flags().IntVar(&flagPages, "pages", 0, "Listing pages to walk; 0 uses the configured maximum")
	cmd.MarkFlagRequired("artist")
	cmd.MarkFlagRequired("metro")
	return cmd
}

// runLast walks the artist's listing pages and selects the most recent
// show for the metro. Exit code distinguishes a winner from unknown.
func runLast(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	classifier := metro.NewClassifier(loadedConfig.Metros)
	if !classifier.Known(flagMetro) {
		return fmt.Errorf("unknown metro %q", flagMetro)
	}

	client := fetch.New(loadedConfig.HTTP)
	listing := extract.NewListing(loadedConfig, classifier, client)
	cands, err := listing.Extract(cmd.Context(), extract.ListingRequest{
		Artist:   flagArtist,
		Slug:     flagSlug,
		MaxPages: flagPages,
	})
	if err != nil {
		return fmt.Errorf("extracting listing: %w", err)
	}

	result := selector.New(classifier).Select(flagMetro, cands)
	if err := WriteResult(os.Stdout, result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if result.Status == "unknown" {
		os.Exit(ExitUnknown)
	}
	return nil
}

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Extract show candidates from a page",
		RunE:  runParse,
	}
	cmd.Flags().StringVar(&flagURL, "url", "", "Page URL; fetched unless --file is given (required)")
	cmd.Flags().StringVar(&flagFile, "file", "", "Local HTML file to parse instead of fetching")
	cmd.Flags().StringVar(&flagArtist, "artist", "", "Artist name hint")
	cmd.MarkFlagRequired("url")
	return cmd
}

// runParse runs the generic extractor over one page and prints the
// candidates it finds.
func runParse(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	classifier := metro.NewClassifier(loadedConfig.Metros)
	client := fetch.New(loadedConfig.HTTP)
	generic := extract.NewGeneric(loadedConfig, classifier, client)

	if flagFile != "" {
		f, err := os.Open(flagFile)
		if err != nil {
			return fmt.Errorf("opening %s: %w", flagFile, err)
		}
		defer f.Close()
		extracted, err := generic.Extract(f, flagURL, flagArtist)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", flagFile, err)
		}
		return WriteCandidates(os.Stdout, extracted, format, flagVerbose)
	}

	extracted, err := generic.ExtractURL(cmd.Context(), flagURL, flagArtist)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", flagURL, err)
	}
	return WriteCandidates(os.Stdout, extracted, format, flagVerbose)
}

func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Run selection over a candidates JSON file",
		RunE:  runSelect,
	}
	cmd.Flags().StringVar(&flagMetro, "metro", "", "Metro id, e.g. SF or NYC (required)")
	cmd.Flags().StringVar(&flagFile, "file", "", "Candidates JSON file; '-' reads stdin (required)")
	cmd.MarkFlagRequired("metro")
	cmd.MarkFlagRequired("file")
	return cmd
}

// runSelect decides over an already-extracted candidate batch. The input
// is either a bare JSON array of candidates or an object with a
// "candidates" field, so extraction output pipes straight back in.
func runSelect(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	classifier := metro.NewClassifier(loadedConfig.Metros)
	if !classifier.Known(flagMetro) {
		return fmt.Errorf("unknown metro %q", flagMetro)
	}

	var data []byte
	var err error
	if flagFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(flagFile)
	}
	if err != nil {
		return fmt.Errorf("reading candidates: %w", err)
	}

	var cands []candidate.Candidate
	if jsonErr := json.Unmarshal(data, &cands); jsonErr != nil {
		var wrapped struct {
			Candidates []candidate.Candidate `json:"candidates"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return fmt.Errorf("parsing candidates: %w", jsonErr)
		}
		cands = wrapped.Candidates
	}

	result := selector.New(classifier).Select(flagMetro, cands)
	if err := WriteResult(os.Stdout, result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if result.Status == "unknown" {
		os.Exit(ExitUnknown)
	}
	return nil
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
