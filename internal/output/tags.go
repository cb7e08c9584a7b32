package output

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/bogem/id3v2/v2"
)

// TrackTags holds the ID3 metadata for one rendered track
type TrackTags struct {
	Title  string
	Album  string
	Artist string
	Track  int // 1-based track number
}

// WriteTags renders an ID3v2.4 tag in front of the MP3 payload and
// returns the combined bytes. The audio itself is never modified, so a
// caller can fall back to the untagged payload on error.
func WriteTags(audio []byte, tags TrackTags) ([]byte, error) {
	tag := id3v2.NewEmptyTag()
	tag.SetTitle(tags.Title)
	tag.SetAlbum(tags.Album)
	tag.SetArtist(tags.Artist)
	if tags.Track > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"),
			tag.DefaultEncoding(), strconv.Itoa(tags.Track))
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write tag: %w", err)
	}
	buf.Write(audio)

	return buf.Bytes(), nil
}
