package engine

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/yangguo/epub2audio/pkg/types"
)

const (
	edgeTrustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	edgeWSSURL             = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	edgeVoicesURL          = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/voices/list"
	edgeOutputFormat       = "audio-24khz-48kbitrate-mono-mp3"
	edgeOrigin             = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"
	edgeUserAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"

	// One websocket turn per chunk; long chapters span several turns
	edgeMaxChunkRunes = 4000
)

// speechConfigJSON asks the service for plain MP3 frames without
// word-boundary metadata
const speechConfigJSON = `{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + edgeOutputFormat + `"}}}}`

// EdgeEngine synthesizes speech through the Edge read-aloud websocket
// service. Each synthesis turn sends a speech.config message and an SSML
// message, then collects binary audio frames until the service signals
// the end of the turn.
type EdgeEngine struct {
	voice  string
	rate   string
	volume string
	pitch  string

	dialer     *websocket.Dialer
	httpClient *http.Client

	// wsURL and voicesURL override the service endpoints in tests
	wsURL     string
	voicesURL string
}

// NewEdgeEngine creates a new Edge read-aloud speech engine
func NewEdgeEngine(cfg types.EdgeConfig) *EdgeEngine {
	if cfg.Voice == "" {
		cfg.Voice = "en-US-BrianNeural"
	}
	if cfg.Rate == "" {
		cfg.Rate = "+0%"
	}
	if cfg.Volume == "" {
		cfg.Volume = "+0%"
	}
	if cfg.Pitch == "" {
		cfg.Pitch = "+0Hz"
	}

	return &EdgeEngine{
		voice:  cfg.Voice,
		rate:   cfg.Rate,
		volume: cfg.Volume,
		pitch:  cfg.Pitch,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 30 * time.Second,
		},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *EdgeEngine) Name() string {
	return "edge"
}

// Synthesize converts text to speech, one websocket turn per chunk
func (e *EdgeEngine) Synthesize(ctx context.Context, req Request) (*Response, error) {
	chunks := splitChunks(req.Text, edgeMaxChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to synthesize")
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		part, err := e.speakChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("failed to speak chunk %d of %d: %w", i+1, len(chunks), err)
		}
		audio.Write(part)
	}

	return &Response{Audio: audio.Bytes(), Format: "mp3"}, nil
}

// speakChunk runs a single synthesis turn over a fresh connection
func (e *EdgeEngine) speakChunk(ctx context.Context, text string) ([]byte, error) {
	wsURL := e.wsURL
	if wsURL == "" {
		wsURL = edgeWSSURL
	}
	dialURL := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", wsURL, edgeTrustedClientToken, randomHex16())

	header := http.Header{}
	header.Set("Origin", edgeOrigin)
	header.Set("User-Agent", edgeUserAgent)

	conn, _, err := e.dialer.DialContext(ctx, dialURL, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial speech service: %w", err)
	}
	defer conn.Close()

	// Unblock reads by closing the connection when the context ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfigMessage())); err != nil {
		return nil, fmt.Errorf("failed to send speech config: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(e.ssmlMessage(randomHex16(), text))); err != nil {
		return nil, fmt.Errorf("failed to send ssml: %w", err)
	}

	start := time.Now()
	var audio bytes.Buffer
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read from speech service: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			headers, _ := parseWireMessage(data)
			if headers["Path"] == "turn.end" {
				if audio.Len() == 0 {
					return nil, fmt.Errorf("speech service returned no audio")
				}
				log.Debug("synthesized chunk",
					"engine", "edge", "voice", e.voice,
					"bytes", audio.Len(), "took", time.Since(start))
				return audio.Bytes(), nil
			}
		case websocket.BinaryMessage:
			if payload, ok := audioPayload(data); ok {
				audio.Write(payload)
			}
		}
	}
}

// speechConfigMessage builds the per-connection configuration message
func speechConfigMessage() string {
	return "X-Timestamp:" + edgeTimestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		speechConfigJSON
}

// ssmlMessage builds the synthesis request message for one chunk
func (e *EdgeEngine) ssmlMessage(requestID, text string) string {
	ssml := fmt.Sprintf(
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'>"+
			"<voice name='%s'><prosody pitch='%s' rate='%s' volume='%s'>%s</prosody></voice></speak>",
		e.voice, e.pitch, e.rate, e.volume, escapeSSML(text))

	return "X-RequestId:" + requestID + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + edgeTimestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" +
		ssml
}

// escapeSSML escapes text for embedding in an SSML document
func escapeSSML(text string) string {
	return ssmlReplacer.Replace(text)
}

var ssmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// edgeTimestamp renders the wall clock the way the service expects
func edgeTimestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05") + " GMT+0000 (Coordinated Universal Time)"
}

// parseWireMessage splits a text frame into its headers and body
func parseWireMessage(data []byte) (map[string]string, []byte) {
	headerPart := data
	var body []byte
	if idx := bytes.Index(data, []byte("\r\n\r\n")); idx >= 0 {
		headerPart = data[:idx]
		body = data[idx+4:]
	}

	headers := make(map[string]string)
	for _, line := range strings.Split(string(headerPart), "\r\n") {
		if k, v, ok := strings.Cut(line, ":"); ok {
			headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return headers, body
}

// audioPayload extracts the MP3 payload from a binary frame. The frame
// starts with a two byte big-endian header length, followed by the
// headers and the audio bytes.
func audioPayload(data []byte) ([]byte, bool) {
	if len(data) < 2 {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(data[:2]))
	if len(data) < 2+headerLen {
		return nil, false
	}

	headers, _ := parseWireMessage(data[2 : 2+headerLen])
	if headers["Path"] != "audio" {
		return nil, false
	}
	return data[2+headerLen:], true
}

// randomHex16 returns 16 random bytes as lowercase hex
func randomHex16() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// edgeVoiceData is one entry of the service's voice list
type edgeVoiceData struct {
	Name         string `json:"Name"`
	ShortName    string `json:"ShortName"`
	Gender       string `json:"Gender"`
	Locale       string `json:"Locale"`
	FriendlyName string `json:"FriendlyName"`
	Status       string `json:"Status"`
}

// ListVoices fetches the service's published voice list
func (e *EdgeEngine) ListVoices(ctx context.Context) ([]types.Voice, error) {
	voicesURL := e.voicesURL
	if voicesURL == "" {
		voicesURL = edgeVoicesURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		voicesURL+"?trustedclienttoken="+edgeTrustedClientToken, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", edgeUserAgent)

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
		return nil, fmt.Errorf("voice list returned status %d: %s", resp.StatusCode, truncateString(string(body), 200))
	}

	var raw []edgeVoiceData
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal voice list: %w", err)
	}

	voices := make([]types.Voice, 0, len(raw))
	for _, v := range raw {
		voices = append(voices, types.Voice{
			ID:          v.ShortName,
			Name:        v.FriendlyName,
			Languages:   []string{v.Locale},
			Gender:      strings.ToLower(v.Gender),
			Description: v.Name,
		})
	}
	return voices, nil
}

func (e *EdgeEngine) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}
