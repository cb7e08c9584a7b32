package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/yangguo/epub2audio/pkg/types"
)

const (
	// The translate endpoint truncates requests past roughly this length
	gttsMaxChunkRunes = 100

	gttsUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// GTTSEngine synthesizes speech through the Google Translate read-aloud
// endpoint. Text is split into chunks the endpoint accepts and the MP3
// parts are concatenated in order. Requests are rate limited to avoid
// being blocked.
type GTTSEngine struct {
	language   string
	tld        string
	slow       bool
	httpClient *http.Client
	limiter    *rate.Limiter

	// baseURL overrides the translate endpoint in tests
	baseURL string
}

// NewGTTSEngine creates a new Google Translate speech engine
func NewGTTSEngine(cfg types.GTTSConfig) (*GTTSEngine, error) {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.TLD == "" {
		cfg.TLD = "com"
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 50
	}

	// Reject language strings that are not even parseable as a tag;
	// well-formed but unknown codes are left for the service to judge
	if tag, err := language.Parse(cfg.Language); err != nil && tag == language.Und {
		return nil, fmt.Errorf("invalid language code %q: %w", cfg.Language, err)
	}

	return &GTTSEngine{
		language: cfg.Language,
		tld:      cfg.TLD,
		slow:     cfg.Slow,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

func (e *GTTSEngine) Name() string {
	return "gtts"
}

// Synthesize converts text to speech, one endpoint request per chunk
func (e *GTTSEngine) Synthesize(ctx context.Context, req Request) (*Response, error) {
	chunks := splitChunks(req.Text, gttsMaxChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to synthesize")
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter interrupted: %w", err)
		}

		part, err := e.fetchChunk(ctx, chunk, i, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chunk %d of %d: %w", i+1, len(chunks), err)
		}
		audio.Write(part)
	}

	return &Response{Audio: audio.Bytes(), Format: "mp3"}, nil
}

// fetchChunk requests the spoken audio for a single text chunk
func (e *GTTSEngine) fetchChunk(ctx context.Context, text string, idx, total int) ([]byte, error) {
	speed := "1"
	if e.slow {
		speed = "0.3"
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", e.language)
	q.Set("q", text)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(len([]rune(text))))
	q.Set("ttsspeed", speed)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint()+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", gttsUserAgent)
	httpReq.Header.Set("Referer", "https://translate.google."+e.tld+"/")

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, truncateString(string(body), 200))
	}

	log.Debug("fetched speech chunk",
		"engine", "gtts", "chunk", idx+1, "of", total,
		"bytes", len(body), "took", time.Since(start))
	return body, nil
}

// endpoint returns the translate URL for the configured accent domain
func (e *GTTSEngine) endpoint() string {
	if e.baseURL != "" {
		return e.baseURL
	}
	return fmt.Sprintf("https://translate.google.%s/translate_tts", e.tld)
}

// ListVoices returns the languages the translate endpoint speaks.
// The endpoint exposes no voice metadata, so this is a fixed table.
func (e *GTTSEngine) ListVoices(ctx context.Context) ([]types.Voice, error) {
	return gttsLanguages, nil
}

func (e *GTTSEngine) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}

// gttsLanguages lists the language codes the translate endpoint accepts
var gttsLanguages = []types.Voice{
	{ID: "ar", Name: "Arabic", Languages: []string{"ar"}},
	{ID: "cs", Name: "Czech", Languages: []string{"cs"}},
	{ID: "da", Name: "Danish", Languages: []string{"da"}},
	{ID: "de", Name: "German", Languages: []string{"de"}},
	{ID: "el", Name: "Greek", Languages: []string{"el"}},
	{ID: "en", Name: "English", Languages: []string{"en"}},
	{ID: "es", Name: "Spanish", Languages: []string{"es"}},
	{ID: "fi", Name: "Finnish", Languages: []string{"fi"}},
	{ID: "fr", Name: "French", Languages: []string{"fr"}},
	{ID: "hi", Name: "Hindi", Languages: []string{"hi"}},
	{ID: "hu", Name: "Hungarian", Languages: []string{"hu"}},
	{ID: "id", Name: "Indonesian", Languages: []string{"id"}},
	{ID: "it", Name: "Italian", Languages: []string{"it"}},
	{ID: "ja", Name: "Japanese", Languages: []string{"ja"}},
	{ID: "ko", Name: "Korean", Languages: []string{"ko"}},
	{ID: "nl", Name: "Dutch", Languages: []string{"nl"}},
	{ID: "no", Name: "Norwegian", Languages: []string{"no"}},
	{ID: "pl", Name: "Polish", Languages: []string{"pl"}},
	{ID: "pt", Name: "Portuguese", Languages: []string{"pt"}},
	{ID: "ro", Name: "Romanian", Languages: []string{"ro"}},
	{ID: "ru", Name: "Russian", Languages: []string{"ru"}},
	{ID: "sv", Name: "Swedish", Languages: []string{"sv"}},
	{ID: "th", Name: "Thai", Languages: []string{"th"}},
	{ID: "tr", Name: "Turkish", Languages: []string{"tr"}},
	{ID: "uk", Name: "Ukrainian", Languages: []string{"uk"}},
	{ID: "vi", Name: "Vietnamese", Languages: []string{"vi"}},
	{ID: "zh-CN", Name: "Chinese (Simplified)", Languages: []string{"zh-CN"}},
	{ID: "zh-TW", Name: "Chinese (Traditional)", Languages: []string{"zh-TW"}},
}
