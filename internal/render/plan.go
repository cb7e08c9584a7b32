package render

import (
	"fmt"
	"unicode/utf8"

	"github.com/yangguo/epub2audio/internal/output"
	"github.com/yangguo/epub2audio/pkg/types"
)

// Task is one chapter queued for rendering
type Task struct {
	Chapter  types.Chapter
	Track    int    // 1-based position in the final book
	Title    string // Display title, never empty
	Filename string // Sanitized output file name
}

// FilterChapters applies the selection knobs in order: minimum text
// length first, then the start offset, then the limit. Offsets index
// into the already length-filtered list.
func FilterChapters(chapters []types.Chapter, minChars, start, limit int) []types.Chapter {
	kept := make([]types.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if utf8.RuneCountInString(ch.Text) >= minChars {
			kept = append(kept, ch)
		}
	}

	if start > 0 {
		if start >= len(kept) {
			return nil
		}
		kept = kept[start:]
	}
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// Plan numbers the chapters and derives their output filenames. Track
// numbers are dense and 1-based so a filtered book still counts 1..N.
// Untitled chapters are named after their track.
func Plan(chapters []types.Chapter) []Task {
	tasks := make([]Task, 0, len(chapters))
	for i, ch := range chapters {
		track := i + 1
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", track)
		}

		tasks = append(tasks, Task{
			Chapter:  ch,
			Track:    track,
			Title:    title,
			Filename: fmt.Sprintf("%03d - %s.mp3", track, output.SanitizeFilename(title)),
		})
	}
	return tasks
}
