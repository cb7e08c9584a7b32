package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/yangguo/epub2audio/internal/engine"
	"github.com/yangguo/epub2audio/internal/output"
	"github.com/yangguo/epub2audio/internal/storage"
	"github.com/yangguo/epub2audio/pkg/types"
)

// ErrNothingRendered indicates that not a single track made it to
// storage, neither freshly written nor already present
var ErrNothingRendered = errors.New("no audio files were written")

// Options configure an Orchestrator
type Options struct {
	Jobs      int           // Parallel workers; 1 renders sequentially
	Retries   int           // Total synthesis attempts per chapter
	RetryWait time.Duration // Base wait, doubled after each failed attempt
	Album     string        // ID3 album for every track
	Artist    string        // ID3 artist for every track
}

// Orchestrator renders chapters to tagged audio files through a speech
// engine. A failed chapter never stops its siblings; the caller reads
// the outcome per track from the results.
type Orchestrator struct {
	engine engine.Engine
	store  storage.Adapter
	opts   Options
}

// NewOrchestrator creates a new render orchestrator
func NewOrchestrator(eng engine.Engine, store storage.Adapter, opts Options) *Orchestrator {
	if opts.Jobs <= 0 {
		opts.Jobs = 1
	}
	if opts.Retries <= 0 {
		opts.Retries = 1
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 2 * time.Second
	}

	return &Orchestrator{
		engine: eng,
		store:  store,
		opts:   opts,
	}
}

// Run renders every task and returns one result per task, ordered by
// track. The error is ErrNothingRendered when nothing reached storage;
// partial failure is not an error.
func (o *Orchestrator) Run(ctx context.Context, tasks []Task) ([]types.RenderResult, error) {
	if len(tasks) == 0 {
		return nil, ErrNothingRendered
	}

	workers := o.opts.Jobs
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var results []types.RenderResult
	if workers <= 1 {
		results = make([]types.RenderResult, 0, len(tasks))
		for _, task := range tasks {
			results = append(results, o.renderTask(ctx, task, len(tasks)))
		}
	} else {
		results = o.runPool(ctx, tasks, workers)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Track < results[j].Track })

	written, skipped, _ := Tally(results)
	if written+skipped == 0 {
		return results, ErrNothingRendered
	}
	return results, nil
}

// runPool fans the tasks out to a bounded pool of workers and collects
// the results. Workers own a task end to end, so no result is touched
// by two goroutines.
func (o *Orchestrator) runPool(ctx context.Context, tasks []Task, workers int) []types.RenderResult {
	taskCh := make(chan Task)
	resCh := make(chan types.RenderResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				resCh <- o.renderTask(ctx, task, len(tasks))
			}
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)
	wg.Wait()
	close(resCh)

	results := make([]types.RenderResult, 0, len(tasks))
	for r := range resCh {
		results = append(results, r)
	}
	return results
}

// renderTask takes one chapter from text to stored audio
func (o *Orchestrator) renderTask(ctx context.Context, task Task, total int) types.RenderResult {
	result := types.RenderResult{
		Track:    task.Track,
		Filename: task.Filename,
		Title:    task.Title,
	}

	exists, err := o.store.Exists(ctx, task.Filename)
	if err == nil && exists {
		log.Info("Exists, skipping",
			"track", fmt.Sprintf("%d/%d", task.Track, total), "file", task.Filename)
		result.Skipped = true
		return result
	}

	log.Info("Synthesizing",
		"track", fmt.Sprintf("%d/%d", task.Track, total), "file", task.Filename)

	audio, err := o.synthesizeWithRetry(ctx, task)
	if err != nil {
		log.Error("Chapter failed",
			"track", task.Track, "title", task.Title, "error", err)
		result.Err = err
		return result
	}

	// Tagging failure downgrades to an untagged write
	tagged, err := output.WriteTags(audio, output.TrackTags{
		Title:  task.Title,
		Album:  o.opts.Album,
		Artist: o.opts.Artist,
		Track:  task.Track,
	})
	if err != nil {
		log.Warn("Failed to tag track, writing untagged",
			"file", task.Filename, "error", err)
		tagged = audio
	}

	if err := o.store.Put(ctx, task.Filename, bytes.NewReader(tagged)); err != nil {
		result.Err = fmt.Errorf("failed to store audio: %w", err)
		return result
	}

	result.Bytes = int64(len(tagged))
	log.Debug("Wrote track",
		"file", task.Filename, "size", humanize.Bytes(uint64(len(tagged))))
	return result
}

// synthesizeWithRetry calls the engine with exponential backoff between
// attempts
func (o *Orchestrator) synthesizeWithRetry(ctx context.Context, task Task) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= o.opts.Retries; attempt++ {
		resp, err := o.engine.Synthesize(ctx, engine.Request{Text: task.Chapter.Text})
		if err == nil {
			return resp.Audio, nil
		}
		lastErr = err

		if attempt == o.opts.Retries {
			break
		}
		wait := o.opts.RetryWait * time.Duration(1<<(attempt-1))
		log.Warn("Synthesis failed, retrying",
			"track", task.Track, "attempt", attempt, "of", o.opts.Retries,
			"wait", wait, "error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("synthesis failed after %d attempts: %w", o.opts.Retries, lastErr)
}

// Tally counts the outcomes of a run
func Tally(results []types.RenderResult) (written, skipped, failed int) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Skipped:
			skipped++
		default:
			written++
		}
	}
	return written, skipped, failed
}
