// Command digest-job builds and delivers the periodic chat digest: it pulls
// one window of channel messages, extracts scored topic candidates, composes
// a Markdown digest (model-backed with a deterministic fallback), normalizes
// it to the canonical schema, and posts it chunk by chunk to a webhook.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"github.com/theimaginaryfoundation/digest-o-bot/digest"
	"github.com/theimaginaryfoundation/digest-o-bot/digest/delivery"
	"github.com/theimaginaryfoundation/digest-o-bot/digest/fileutils"
	"github.com/theimaginaryfoundation/digest-o-bot/digest/provider"
	"github.com/theimaginaryfoundation/digest-o-bot/digest/source"
	"github.com/theimaginaryfoundation/digest-o-bot/digest/state"
)

func main() {
	_ = godotenv.Load()

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	log.DefaultLogger = log.Logger{
		Level:      log.InfoLevel,
		TimeFormat: "15:04:05",
		Writer:     &log.ConsoleWriter{ColorOutput: true},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule != "" {
		if err := runScheduled(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("scheduler failed")
		}
		return
	}
	if err := runOnce(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("digest run failed")
	}
}

func runOnce(ctx context.Context, cfg Config) error {
	startedAt := time.Now().UTC()

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}

	end := startedAt
	contextStart := end.Add(-time.Duration(cfg.WindowHours) * time.Hour)
	recentStart := end.Add(-time.Duration(cfg.RecentHours) * time.Hour)

	messages, err := src.Fetch(ctx, source.Window{Start: contextStart, End: end}, cfg.Channels)
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}
	contextMsgs, recentMsgs := splitWindow(messages, recentStart)
	log.Info().
		Int("total", len(messages)).
		Int("recent", len(recentMsgs)).
		Str("channels", channelList(cfg.Channels)).
		Msg("fetched messages")

	for _, path := range []string{cfg.AliasPath, cfg.GlossaryPath} {
		if path != "" && !fileutils.FileExists(path) {
			log.Warn().Str("path", path).Msg("dictionary file missing, using empty table")
		}
	}
	table := digest.LoadAliasTable(cfg.AliasPath)
	glossary := digest.LoadGlossary(cfg.GlossaryPath)
	result := digest.Run(recentMsgs, table)
	log.Info().
		Int("candidates", len(result.Candidates)).
		Int("bundles", len(result.Bundles)).
		Msg("extraction done")

	startWIB := digest.WIBClock(digest.FormatTimestamp(recentStart))
	endWIB := digest.WIBClock(digest.FormatTimestamp(end))

	markdown := composeDigest(ctx, cfg, contextMsgs, recentMsgs, result, table, glossary, startWIB, endWIB)
	normalized := delivery.NormalizeDigest(markdown)
	chunks := delivery.Chunk(normalized, cfg.ChunkLimit)

	if cfg.OutDir != "" {
		if err := writeArtifacts(cfg.OutDir, result, normalized, chunks); err != nil {
			log.Warn().Err(err).Msg("artifact write failed")
		}
	}

	delivered := false
	var deliveryErr error
	if cfg.DryRun {
		for i, chunk := range chunks {
			fmt.Printf("--- chunk %d/%d ---\n%s\n", i+1, len(chunks), chunk)
		}
	} else {
		poster := delivery.NewPoster(cfg.WebhookURL)
		sent, perr := poster.Post(ctx, chunks)
		if perr != nil {
			deliveryErr = perr
			log.Error().Err(perr).Int("sent", sent).Msg("delivery failed")
		} else {
			delivered = true
			log.Info().Int("chunks", sent).Msg("digest delivered")
		}
	}

	// Dry runs leave no state row; the next real run still sees the true
	// last delivery.
	if cfg.StatePath != "" && !cfg.DryRun {
		recordRun(ctx, cfg, startedAt, len(recentMsgs), result, len(chunks), delivered, deliveryErr)
	}
	return nil
}

func buildSource(cfg Config) (source.Source, error) {
	if cfg.ExportPath != "" {
		if !fileutils.FileExists(cfg.ExportPath) {
			return nil, fmt.Errorf("buildSource: export file %s does not exist", cfg.ExportPath)
		}
		return &source.ExportSource{Path: cfg.ExportPath, ArrayField: cfg.ArrayField}, nil
	}
	src, err := source.NewTelegramSource(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// splitWindow partitions fetched messages at the recent-window boundary.
func splitWindow(messages []digest.Message, recentStart time.Time) (older, recent []digest.Message) {
	for _, m := range messages {
		t, ok := digest.ParseTimestamp(m.TimestampUTC)
		if ok && t.Before(recentStart) {
			older = append(older, m)
		} else {
			recent = append(recent, m)
		}
	}
	for i := range recent {
		recent[i].SourceIndex = i
	}
	return older, recent
}

var analyzeSchema = provider.GenerateSchema[analyzeResult]()

// composeDigest runs the two model stages, degrading to the deterministic
// bundle-based digest whenever a stage fails or produces unusable output.
func composeDigest(ctx context.Context, cfg Config, contextMsgs, recentMsgs []digest.Message, result digest.Result, table digest.AliasTable, glossary digest.Glossary, startWIB, endWIB string) string {
	fallback := func(reason string, err error) string {
		log.Warn().Err(err).Str("reason", reason).Msg("using fallback digest")
		return digest.FallbackDigest(result.Bundles, startWIB, endWIB)
	}
	if cfg.APIKey == "" {
		return fallback("no api key", nil)
	}

	client := provider.NewClient(cfg.APIKey, cfg.Model)
	contextTranscript := digest.FlattenConversations(digest.BundleConversations(contextMsgs))
	recentTranscript := digest.FlattenConversations(digest.BundleConversations(recentMsgs))

	var analysis analyzeResult
	err := client.CompleteJSON(ctx, analyzePrompt,
		buildAnalyzeInput(contextTranscript, recentTranscript),
		"ConversationAnalysis", analyzeSchema, 4000, &analysis)
	if err != nil {
		return fallback("analyze stage failed", err)
	}
	if len(analysis.Threads) == 0 {
		return fallback("analyze produced no threads", nil)
	}

	input, err := buildComposeInput(analysis, startWIB, endWIB, table, glossary)
	if err != nil {
		return fallback("compose input failed", err)
	}
	markdown, err := client.Complete(ctx, composePrompt, input, 4000)
	if err != nil {
		return fallback("compose stage failed", err)
	}
	if !usableCompletion(markdown) {
		return fallback("compose output unusable", nil)
	}
	return markdown
}

func writeArtifacts(outDir string, result digest.Result, normalized string, chunks []string) error {
	if err := fileutils.WriteJSONFileAtomic(filepath.Join(outDir, "candidates.json"), result.Candidates, true); err != nil {
		return err
	}
	if err := fileutils.WriteJSONFileAtomic(filepath.Join(outDir, "seeds.json"), result.Seeds, true); err != nil {
		return err
	}
	if err := fileutils.WriteFileAtomicSameDir(filepath.Join(outDir, "digest.md"), []byte(normalized), 0o644); err != nil {
		return err
	}
	return fileutils.WriteJSONFileAtomic(filepath.Join(outDir, "chunks.json"), chunks, true)
}

func recordRun(ctx context.Context, cfg Config, startedAt time.Time, messageCount int, result digest.Result, chunkCount int, delivered bool, deliveryErr error) {
	store, err := state.Open(cfg.StatePath)
	if err != nil {
		log.Warn().Err(err).Msg("state store unavailable")
		return
	}
	defer store.Close()

	note := ""
	if deliveryErr != nil {
		note = "delivery failed: " + deliveryErr.Error()
	}
	_, err = store.RecordRun(ctx, state.Run{
		StartedAt:   startedAt,
		FinishedAt:  time.Now().UTC(),
		WindowHours: cfg.RecentHours,
		Messages:    messageCount,
		Candidates:  len(result.Candidates),
		Bundles:     len(result.Bundles),
		Chunks:      chunkCount,
		Delivered:   delivered,
		Note:        note,
	})
	if err != nil {
		log.Warn().Err(err).Msg("state record failed")
	}
}

// channelList is only used in log output.
func channelList(channels []string) string {
	if len(channels) == 0 {
		return "(all)"
	}
	return strings.Join(channels, ",")
}
