// cardctl runs the flashcard pipeline locally against an LM Studio server,
// without the gateway, queue, or database. Useful for one-off decks and for
// poking at a local model.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cardsmith/internal/cardgen"
	"cardsmith/internal/chunker"
	"cardsmith/internal/cleaner"
	"cardsmith/internal/config"
	"cardsmith/internal/deck"
	"cardsmith/internal/export"
	"cardsmith/internal/ingest"
	"cardsmith/internal/llm"
	"cardsmith/internal/logger"
	"cardsmith/internal/prompt"
	"cardsmith/internal/summarize"
)

var (
	flagOutput      string
	flagFormat      string
	flagMaxCards    int
	flagTargetWords int
)

var rootCmd = &cobra.Command{
	Use:           "cardctl",
	Short:         "Turn documents into flashcard decks and summaries",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the LLM server",
	RunE:  runModels,
}

var generateCmd = &cobra.Command{
	Use:   "generate [file]",
	Short: "Generate a flashcard deck from a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func init() {
	generateCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write the deck to a file instead of stdout")
	generateCmd.Flags().StringVar(&flagFormat, "format", "json", "output format: json or tsv")
	generateCmd.Flags().IntVar(&flagMaxCards, "max-cards", 0, "max cards per chunk (overrides MAX_CARDS_PER_CHUNK)")
	summarizeCmd.Flags().IntVar(&flagTargetWords, "target-words", 0, "summary length (overrides SUMMARY_TARGET_WORDS)")
	rootCmd.AddCommand(modelsCmd, generateCmd, summarizeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildEnv loads config and the shared pipeline pieces the CLI needs.
func buildEnv() (config.Config, *llm.LMStudioClient, *prompt.Library, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewText(cfg.LogLevel)

	client, err := llm.NewLMStudioClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel,
		log, time.Duration(cfg.LLMTimeout)*time.Second)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	prompts, err := prompt.Load(cfg.PromptDir)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, client, prompts, nil
}

func runModels(cmd *cobra.Command, args []string) error {
	_, client, _, err := buildEnv()
	if err != nil {
		return err
	}

	ctx := context.Background()
	models, err := client.Models(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if len(models) == 0 {
		cmd.Println("No models loaded on the server.")
		return nil
	}

	selected, err := client.Model(ctx)
	if err != nil {
		return err
	}
	cmd.Println("Available models:")
	for _, m := range models {
		marker := "  "
		if m.ID == selected {
			marker = "* "
		}
		cmd.Printf("%s%s\n", marker, m.ID)
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, client, prompts, err := buildEnv()
	if err != nil {
		return err
	}
	log := logger.NewText(cfg.LogLevel)

	src, chunks, err := prepare(cfg, args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Chunked %q into %d chunks\n", src.Title, len(chunks))

	maxCards := cfg.MaxCardsPerChunk
	if flagMaxCards > 0 {
		maxCards = flagMaxCards
	}
	gen := cardgen.New(client, prompts, log, cardgen.Options{
		MaxCardsPerChunk: maxCards,
		Temperature:      cfg.LLMTemperature,
		MaxTokens:        cfg.LLMMaxTokens,
		RateLimitDelay:   time.Duration(cfg.RateLimitDelay * float64(time.Second)),
		MaxConcurrent:    cfg.MaxConcurrent,
	})

	cards, err := gen.GenerateAll(context.Background(), chunks, func(done, total, cardCount int) {
		cmd.Printf("\rchunk %d/%d, %d cards", done, total, cardCount)
	})
	cmd.Println()
	if err != nil {
		return err
	}

	d := deck.New(src.Title)
	d.AddAll(cards)
	if removed := d.RemoveDuplicates(); removed > 0 {
		cmd.Printf("Removed %d duplicate cards\n", removed)
	}

	out := cmd.OutOrStdout()
	if flagOutput != "" {
		f, err := os.Create(flagOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	switch flagFormat {
	case "tsv":
		err = export.WriteAnkiTSV(out, d)
	case "json":
		err = export.WriteDeckJSON(out, d)
	default:
		return fmt.Errorf("unknown format %q (json or tsv)", flagFormat)
	}
	if err != nil {
		return err
	}
	if flagOutput != "" {
		cmd.Printf("Wrote %d cards to %s\n", len(d.Cards), flagOutput)
	}
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, client, prompts, err := buildEnv()
	if err != nil {
		return err
	}
	log := logger.NewText(cfg.LogLevel)

	src, chunks, err := prepare(cfg, args[0])
	if err != nil {
		return err
	}

	targetWords := cfg.SummaryTargetWords
	if flagTargetWords > 0 {
		targetWords = flagTargetWords
	}
	s := summarize.New(client, prompts, log, summarize.Options{
		TargetWords: targetWords,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		BatchPause:  time.Duration(cfg.BatchPause * float64(time.Second)),
	})

	ctx := context.Background()
	cmd.Printf("Summarizing %d chunks of %q\n", len(chunks), src.Title)
	perChunk := s.SummarizeAll(ctx, chunks)
	cmd.Println(s.Combine(ctx, perChunk))
	return nil
}

// prepare loads a file, cleans it, and chunks it with the configured limits.
func prepare(cfg config.Config, path string) (*ingest.Source, []chunker.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	src, err := ingest.Load(path, data)
	if err != nil {
		return nil, nil, err
	}

	cleaned, _ := cleaner.Clean(src.Content, cleaner.Options{
		RemoveURLs:          cfg.CleanRemoveURLs,
		RemoveEmails:        cfg.CleanRemoveEmails,
		NormalizeWhitespace: cfg.CleanWhitespace,
	})
	chunks := chunker.Split(cleaned, src.ID, chunker.Options{
		MaxWords:     cfg.ChunkMaxWords,
		MinWords:     cfg.ChunkMinWords,
		OverlapWords: cfg.ChunkOverlapWords,
	})
	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("%s produced no usable chunks", path)
	}
	return src, chunks, nil
}
