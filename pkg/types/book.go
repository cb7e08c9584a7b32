package types

// Book holds container-level metadata surfaced to tagging and bundling
type Book struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	Language   string `json:"language"` // ISO-639-1 code
	SourcePath string `json:"source_path"`
}

// Chapter is one unit of narration extracted from a book.
// Orders are unique and strictly increasing from 0 in emission order.
type Chapter struct {
	Order int    `json:"order"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// RenderResult is the outcome of rendering a single chapter
type RenderResult struct {
	Track    int    `json:"track"`    // 1-based track number
	Filename string `json:"filename"` // Final audio file name
	Title    string `json:"title"`
	Bytes    int64  `json:"bytes"`             // Audio size, 0 when skipped
	Skipped  bool   `json:"skipped,omitempty"` // Output already existed
	Err      error  `json:"-"`                 // Non-nil when all attempts failed
}

// Voice describes a TTS voice offered by an engine
type Voice struct {
	ID          string   `json:"id"`          // Engine-specific voice ID
	Name        string   `json:"name"`        // Human-readable name
	Languages   []string `json:"languages"`   // Supported language codes (ISO-639-1)
	Gender      string   `json:"gender"`      // "male", "female", "neutral", or empty
	Description string   `json:"description"` // Additional description
}
