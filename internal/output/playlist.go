package output

import (
	"context"
	"fmt"
	"strings"

	"github.com/yangguo/epub2audio/internal/storage"
	"github.com/yangguo/epub2audio/pkg/types"
)

// PlaylistName is the playlist file written next to the tracks
const PlaylistName = "playlist.m3u"

// PlaylistLines returns the filenames of the tracks that made it to
// storage, in track order. Skipped tracks count; failed ones do not.
func PlaylistLines(results []types.RenderResult) []string {
	var lines []string
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		lines = append(lines, r.Filename)
	}
	return lines
}

// WritePlaylist writes an M3U playlist listing every rendered track,
// one filename per line
func WritePlaylist(ctx context.Context, store storage.Adapter, results []types.RenderResult) error {
	lines := PlaylistLines(results)

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if err := store.Put(ctx, PlaylistName, strings.NewReader(sb.String())); err != nil {
		return fmt.Errorf("failed to write playlist: %w", err)
	}
	return nil
}
