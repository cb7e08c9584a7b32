// Package main provides the epub2audio command line interface.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/yangguo/epub2audio/internal/config"
	"github.com/yangguo/epub2audio/internal/engine"
	"github.com/yangguo/epub2audio/internal/epub"
	"github.com/yangguo/epub2audio/internal/extract"
	"github.com/yangguo/epub2audio/internal/output"
	"github.com/yangguo/epub2audio/internal/render"
	"github.com/yangguo/epub2audio/internal/storage"
	"github.com/yangguo/epub2audio/pkg/types"
)

const version = "0.3.0"

var (
	configFile      string
	verbose         bool
	engineName      string
	outDir          string
	lang            string
	tld             string
	slow            bool
	voiceName       string
	rate            string
	volume          string
	pitch           string
	splitOn         string
	minChapterChars int
	limit           int
	start           int
	album           string
	artist          string
	jobs            int
	retries         int
	retryWait       int
	bundle          bool
	storageName     string

	rootCmd = &cobra.Command{
		Use:   "epub2audio [flags] BOOK.epub",
		Short: "Convert an EPUB into a spoken MP3 audiobook",
		Long: `Convert an EPUB ebook into a set of spoken MP3 files.

Chapters are pulled from the book in reading order, synthesized with a
remote speech engine, tagged with ID3 metadata and collected into an
.m3u playlist. Chapters whose audio already exists are skipped, so an
interrupted conversion resumes where it left off.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
)

// exitError couples a shell exit code with the failure it reports.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitCode maps an Execute error to the code the process exits with.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func run(cmd *cobra.Command, args []string) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	// A .env file is the usual place for S3 credentials during development.
	_ = godotenv.Load()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	epubPath, err := homedir.Expand(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	c, err := epub.Open(epubPath)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("failed to open EPUB: %w", err)}
	}
	book := types.Book{
		Title:      c.Title,
		Author:     c.Author,
		Language:   c.Language,
		SourcePath: epubPath,
	}
	log.Info("Opened EPUB", "title", book.Title, "documents", len(c.Units))

	chapters := extract.Extract(c, cfg.Output.SplitOn)
	if len(chapters) == 0 {
		return &exitError{code: 2, err: errors.New("no readable chapters found in EPUB")}
	}

	selected := render.FilterChapters(chapters, cfg.Filter.MinChapterChars, cfg.Filter.Start, cfg.Filter.Limit)
	if len(selected) == 0 {
		return &exitError{code: 3, err: fmt.Errorf("no chapters left after filtering (%d extracted)", len(chapters))}
	}
	log.Info("Extracted chapters", "total", len(chapters), "selected", len(selected))

	albumName := cfg.Tags.Album
	if albumName == "" {
		albumName = book.Title
	}
	if albumName == "" {
		albumName = bookStem(epubPath)
	}

	dir := resolveOutDir(cfg, epubPath)
	store, err := buildStore(cfg, dir)
	if err != nil {
		return fmt.Errorf("failed to create storage adapter: %w", err)
	}
	defer store.Close()

	reg, err := engine.BuildRegistry(cfg.Engine)
	if err != nil {
		return fmt.Errorf("failed to build engine registry: %w", err)
	}
	defer reg.Close()
	eng, err := reg.Get(cfg.Engine.Name)
	if err != nil {
		return err
	}
	log.Info("Using speech engine", "engine", eng.Name(), "jobs", cfg.Render.Jobs)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := render.NewOrchestrator(eng, store, render.Options{
		Jobs:      cfg.Render.Jobs,
		Retries:   cfg.Render.Retries,
		RetryWait: time.Duration(cfg.Render.RetryWaitSecs) * time.Second,
		Album:     albumName,
		Artist:    cfg.Tags.Artist,
	})
	results, err := orch.Run(ctx, render.Plan(selected))
	if err != nil {
		if errors.Is(err, render.ErrNothingRendered) {
			return &exitError{code: 4, err: err}
		}
		return err
	}

	if err := output.WritePlaylist(ctx, store, results); err != nil {
		return err
	}
	if cfg.Output.Bundle {
		name, err := output.WriteBundle(ctx, store, book, albumName, cfg.Tags.Artist, results)
		if err != nil {
			return fmt.Errorf("failed to write bundle: %w", err)
		}
		log.Info("Bundle written", "file", name)
	}

	written, skipped, failed := render.Tally(results)
	log.Info("Done", "written", written, "skipped", skipped, "failed", failed,
		"outdir", dir, "playlist", output.PlaylistName)
	return nil
}

// applyFlags overlays values for the flags the user actually set on top
// of the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *types.Config) {
	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.Engine.Name = engineName
	}
	if flags.Changed("outdir") {
		cfg.Output.Dir = outDir
	}
	if flags.Changed("lang") {
		cfg.Engine.GTTS.Language = lang
	}
	if flags.Changed("tld") {
		cfg.Engine.GTTS.TLD = tld
	}
	if flags.Changed("slow") {
		cfg.Engine.GTTS.Slow = slow
	}
	if flags.Changed("voice") {
		cfg.Engine.Edge.Voice = voiceName
	}
	if flags.Changed("rate") {
		cfg.Engine.Edge.Rate = rate
	}
	if flags.Changed("volume") {
		cfg.Engine.Edge.Volume = volume
	}
	if flags.Changed("pitch") {
		cfg.Engine.Edge.Pitch = pitch
	}
	if flags.Changed("split-on") {
		cfg.Output.SplitOn = parseSplitOn(splitOn)
	}
	if flags.Changed("min-chapter-chars") {
		cfg.Filter.MinChapterChars = minChapterChars
	}
	if flags.Changed("limit") {
		cfg.Filter.Limit = limit
	}
	if flags.Changed("start") {
		cfg.Filter.Start = start
	}
	if flags.Changed("album") {
		cfg.Tags.Album = album
	}
	if flags.Changed("artist") {
		cfg.Tags.Artist = artist
	}
	if flags.Changed("jobs") {
		cfg.Render.Jobs = jobs
	}
	if flags.Changed("retries") {
		cfg.Render.Retries = retries
	}
	if flags.Changed("retry-wait") {
		cfg.Render.RetryWaitSecs = retryWait
	}
	if flags.Changed("bundle") {
		cfg.Output.Bundle = bundle
	}
	if flags.Changed("storage") {
		cfg.Storage.Adapter = storageName
	}
}

// parseSplitOn turns a comma-separated heading list like "H1, h2" into
// lowercased tag names.
func parseSplitOn(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// bookStem returns the EPUB file name without its extension.
func bookStem(fpath string) string {
	base := filepath.Base(fpath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// resolveOutDir picks where the rendered book goes. An explicit output
// directory wins, then a configured local base path, then a directory
// named after the book next to the working directory.
func resolveOutDir(cfg *types.Config, epubPath string) string {
	if cfg.Output.Dir != "" {
		return cfg.Output.Dir
	}
	if cfg.Storage.Adapter == "local" && cfg.Storage.Local.BasePath != "" {
		return cfg.Storage.Local.BasePath
	}
	return bookStem(epubPath) + "_audio"
}

// buildStore wires the storage adapter to the output directory. Local
// storage writes into the directory itself; remote backends keep each
// book under a prefix named after it.
func buildStore(cfg *types.Config, dir string) (storage.Adapter, error) {
	if cfg.Storage.Adapter == "local" {
		cfg.Storage.Local.BasePath = dir
	}
	store, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Adapter == "s3" {
		store = storage.WithPrefix(store, path.Base(filepath.ToSlash(dir)))
	}
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&engineName, "engine", "", "speech engine: gtts or edge (default gtts)")

	rootCmd.Flags().StringVarP(&outDir, "outdir", "o", "", "output directory (default <book>_audio)")
	rootCmd.Flags().StringVar(&lang, "lang", "", "gtts language code, e.g. en, es, de (default en)")
	rootCmd.Flags().StringVar(&tld, "tld", "", "gtts accent domain, e.g. com, co.uk, com.au (default com)")
	rootCmd.Flags().BoolVar(&slow, "slow", false, "gtts slow narration")
	rootCmd.Flags().StringVar(&voiceName, "voice", "", "edge voice, e.g. en-US-BrianNeural")
	rootCmd.Flags().StringVar(&rate, "rate", "", "edge speaking rate, e.g. +10%")
	rootCmd.Flags().StringVar(&volume, "volume", "", "edge volume, e.g. -5%")
	rootCmd.Flags().StringVar(&pitch, "pitch", "", "edge pitch, e.g. +2Hz")
	rootCmd.Flags().StringVar(&splitOn, "split-on", "", "comma-separated heading tags to split chapters on, e.g. h1,h2")
	rootCmd.Flags().IntVar(&minChapterChars, "min-chapter-chars", 0, "skip chapters with fewer characters (default 200)")
	rootCmd.Flags().IntVar(&limit, "limit", 0, "render at most this many chapters")
	rootCmd.Flags().IntVar(&start, "start", 0, "chapter index to start from, after filtering")
	rootCmd.Flags().StringVar(&album, "album", "", "ID3 album tag (default: book title)")
	rootCmd.Flags().StringVar(&artist, "artist", "", "ID3 artist tag (default Unknown)")
	rootCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "concurrent synthesis workers (default 1)")
	rootCmd.Flags().IntVar(&retries, "retries", 0, "synthesis attempts per chapter (default 3)")
	rootCmd.Flags().IntVar(&retryWait, "retry-wait", 0, "base seconds between attempts, doubled each retry (default 2)")
	rootCmd.Flags().BoolVar(&bundle, "bundle", false, "also write a zip bundle with a manifest")
	rootCmd.Flags().StringVar(&storageName, "storage", "", "storage adapter: local or s3 (default local)")
}
