package output

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"github.com/yangguo/epub2audio/internal/storage"
	"github.com/yangguo/epub2audio/pkg/types"
)

// Manifest is the top-level metadata file inside a bundle
type Manifest struct {
	Title     string          `json:"title"`
	Album     string          `json:"album"`
	Artist    string          `json:"artist"`
	Language  string          `json:"language,omitempty"`
	Tracks    []ManifestTrack `json:"tracks"`
	CreatedAt time.Time       `json:"created_at"`
	Version   string          `json:"version"`
}

// ManifestTrack describes one track of the bundle
type ManifestTrack struct {
	Track    int    `json:"track"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
}

// WriteBundle packs the rendered tracks, the playlist and a manifest
// into a single ZIP archive next to them and returns its name. MP3
// entries are stored uncompressed; deflating compressed audio buys
// nothing.
func WriteBundle(ctx context.Context, store storage.Adapter, book types.Book, album, artist string, results []types.RenderResult) (string, error) {
	var tracks []types.RenderResult
	for _, r := range results {
		if r.Err == nil {
			tracks = append(tracks, r)
		}
	}
	if len(tracks) == 0 {
		return "", fmt.Errorf("no tracks to bundle")
	}

	buf := new(bytes.Buffer)
	zipWriter := zip.NewWriter(buf)
	zipWriter.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	manifest := buildManifest(book, album, artist, tracks)
	if err := addJSONFile(zipWriter, "manifest.json", manifest); err != nil {
		return "", fmt.Errorf("failed to add manifest: %w", err)
	}

	playlist := strings.Join(PlaylistLines(tracks), "\n") + "\n"
	if err := addFileFromReader(zipWriter, PlaylistName, zip.Deflate, strings.NewReader(playlist)); err != nil {
		return "", fmt.Errorf("failed to add playlist: %w", err)
	}

	for _, track := range tracks {
		audioReader, err := store.Get(ctx, track.Filename)
		if err != nil {
			return "", fmt.Errorf("failed to read track %s: %w", track.Filename, err)
		}
		if err := addFileFromReader(zipWriter, track.Filename, zip.Store, audioReader); err != nil {
			audioReader.Close()
			return "", fmt.Errorf("failed to add track %s: %w", track.Filename, err)
		}
		audioReader.Close()
	}

	if err := zipWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to close zip: %w", err)
	}

	name := SanitizeFilename(album) + ".zip"
	if err := store.Put(ctx, name, bytes.NewReader(buf.Bytes())); err != nil {
		return "", fmt.Errorf("failed to write bundle: %w", err)
	}

	return name, nil
}

// buildManifest creates the manifest file
func buildManifest(book types.Book, album, artist string, tracks []types.RenderResult) *Manifest {
	manifest := &Manifest{
		Title:     book.Title,
		Album:     album,
		Artist:    artist,
		Language:  book.Language,
		Tracks:    make([]ManifestTrack, 0, len(tracks)),
		CreatedAt: time.Now(),
		Version:   "1.0",
	}

	for _, track := range tracks {
		manifest.Tracks = append(manifest.Tracks, ManifestTrack{
			Track:    track.Track,
			Filename: track.Filename,
			Title:    track.Title,
		})
	}

	return manifest
}

// addJSONFile adds a JSON file to the ZIP
func addJSONFile(zipWriter *zip.Writer, path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	writer, err := zipWriter.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}

	if _, err := writer.Write(jsonData); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	return nil
}

// addFileFromReader adds a file from an io.Reader to the ZIP
func addFileFromReader(zipWriter *zip.Writer, path string, method uint16, reader io.Reader) error {
	writer, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:   path,
		Method: method,
	})
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}

	if _, err := io.Copy(writer, reader); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}

	return nil
}
